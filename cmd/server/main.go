package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/soramame/workgroup-api/internal/authz"
	"github.com/soramame/workgroup-api/internal/config"
	"github.com/soramame/workgroup-api/internal/database"
	"github.com/soramame/workgroup-api/internal/handlers"
	"github.com/soramame/workgroup-api/internal/middleware"
	"github.com/soramame/workgroup-api/internal/repository"
	"github.com/soramame/workgroup-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Wire repositories, policy, services
	db := database.GetDB()
	groupRepo := repository.NewWorkGroupRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	priorityRepo := repository.NewPriorityRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	userRepo := repository.NewUserRepository(db)

	authorizer := authz.NewAuthorizer(groupRepo)

	authService := services.NewAuthService(userRepo)
	groupService := services.NewGroupService(groupRepo, authorizer)
	membershipService := services.NewMembershipService(groupRepo, userRepo, authorizer)
	projectService := services.NewProjectService(projectRepo, groupRepo, userRepo, authorizer)
	taskService := services.NewTaskService(taskRepo, groupRepo, projectRepo, priorityRepo, userRepo, authorizer)
	priorityService := services.NewPriorityService(priorityRepo)
	statusService := services.NewStatusService(statusRepo, taskRepo, authorizer)
	commentService := services.NewCommentService(commentRepo, taskRepo, authorizer)

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions("workgroup_session", store))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	groupHandler := handlers.NewGroupHandler(groupService, membershipService, projectService)
	projectHandler := handlers.NewProjectHandler(projectService, taskService)
	taskHandler := handlers.NewTaskHandler(taskService, commentService)
	priorityHandler := handlers.NewPriorityHandler(priorityService)
	statusHandler := handlers.NewStatusHandler(statusService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Work Group API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Work group routes (protected)
		groups := api.Group("/groups")
		groups.Use(middleware.RequireAuth())
		{
			groups.POST("", groupHandler.CreateGroup)
			groups.GET("", groupHandler.ListGroups)
			groups.GET("/:id", middleware.RequireGroupAccess(), groupHandler.GetGroup)
			groups.PUT("/:id", middleware.RequireGroupAccess(), groupHandler.UpdateGroup)
			groups.DELETE("/:id", middleware.RequireGroupAccess(), groupHandler.DeleteGroup)
			groups.GET("/:id/members", middleware.RequireGroupAccess(), groupHandler.ListMembers)
			groups.POST("/:id/members", middleware.RequireGroupAccess(), groupHandler.AddMember)
			groups.DELETE("/:id/members/:username", middleware.RequireGroupAccess(), groupHandler.RemoveMember)
			groups.POST("/:id/members/:username/promote", middleware.RequireGroupAccess(), groupHandler.PromoteMember)
			groups.POST("/:id/members/:username/demote", middleware.RequireGroupAccess(), groupHandler.DemoteMember)
			groups.POST("/:id/transfer", middleware.RequireGroupAccess(), groupHandler.TransferOwnership)
			groups.POST("/:id/leave", middleware.RequireGroupAccess(), groupHandler.Leave)
			groups.GET("/:id/projects", middleware.RequireGroupAccess(), groupHandler.ListProjects)
			groups.POST("/:id/projects", middleware.RequireGroupAccess(), groupHandler.CreateProject)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.GET("/:id", projectHandler.GetProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
			projects.GET("/:id/members", projectHandler.ListMembers)
			projects.POST("/:id/members", projectHandler.AddMember)
			projects.DELETE("/:id/members/:username", projectHandler.RemoveMember)
			projects.GET("/:id/tasks", projectHandler.ListTasks)
			projects.DELETE("/:id/tasks/:taskId", projectHandler.DeleteTask)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/archived", taskHandler.ListArchivedTasks)
			tasks.GET("/:id", middleware.RequireTaskAccess(), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireTaskAccess(), taskHandler.UpdateTask)
			tasks.POST("/:id/archive", middleware.RequireTaskAccess(), taskHandler.ArchiveTask)
			tasks.DELETE("/:id", middleware.RequireTaskAccess(), taskHandler.DeleteTask)
			tasks.GET("/:id/assignees", middleware.RequireTaskAccess(), taskHandler.ListAssignees)
			tasks.POST("/:id/assignees", middleware.RequireTaskAccess(), taskHandler.AssignUser)
			tasks.DELETE("/:id/assignees/:username", middleware.RequireTaskAccess(), taskHandler.UnassignUser)
			tasks.GET("/:id/subtasks", middleware.RequireTaskAccess(), taskHandler.ListSubtasks)
			tasks.POST("/:id/subtasks", middleware.RequireTaskAccess(), taskHandler.CreateSubtask)
			tasks.PUT("/:id/subtasks/:childId", middleware.RequireTaskAccess(), taskHandler.LinkSubtask)
			tasks.GET("/:id/parent", middleware.RequireTaskAccess(), taskHandler.GetParentTask)
			tasks.GET("/:id/comments", middleware.RequireTaskAccess(), taskHandler.ListComments)
			tasks.POST("/:id/comments", middleware.RequireTaskAccess(), taskHandler.CreateComment)
		}

		// Priority catalog routes (protected)
		priorities := api.Group("/priorities")
		priorities.Use(middleware.RequireAuth())
		{
			priorities.GET("", priorityHandler.ListPriorities)
			priorities.POST("", priorityHandler.CreatePriority)
			priorities.GET("/:id", priorityHandler.GetPriority)
			priorities.PUT("/:id", priorityHandler.UpdatePriority)
			priorities.POST("/:id/hide", priorityHandler.HidePriority)
			priorities.POST("/:id/unhide", priorityHandler.UnhidePriority)
		}

		// Status catalog routes (protected)
		statuses := api.Group("/statuses")
		statuses.Use(middleware.RequireAuth())
		{
			statuses.GET("", statusHandler.ListStatuses)
			statuses.POST("", statusHandler.CreateStatus)
			statuses.GET("/:id", statusHandler.GetStatus)
			statuses.PUT("/:id", statusHandler.UpdateStatus)
			statuses.DELETE("/:id", statusHandler.DeleteStatus)
		}
	}

	// Start server
	log.Printf("Server starting on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
