package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/authz"
	"github.com/soramame/workgroup-api/internal/models"
	"github.com/soramame/workgroup-api/internal/repository"
	"gorm.io/gorm"
)

// CommentService handles task comments. Any member of the task's work group
// may comment or read; deleted tasks reject both, archived tasks reject
// writes only.
type CommentService struct {
	commentRepo repository.CommentRepository
	taskRepo    repository.TaskRepository
	auth        *authz.Authorizer
}

// NewCommentService creates a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository, taskRepo repository.TaskRepository, auth *authz.Authorizer) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		auth:        auth,
	}
}

// CreateComment adds a comment to a task. Archived tasks are frozen and
// reject new comments; their existing discussion stays readable.
func (s *CommentService) CreateComment(actor authz.Actor, taskID uint64, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Validation("content_required", "comment content cannot be empty")
	}

	task, err := s.requireTaskMember(actor, taskID)
	if err != nil {
		return nil, err
	}
	if task.Archived {
		return nil, apperrors.InvalidState("task_archived", "an archived task cannot be commented on")
	}

	comment := &models.Comment{
		Content:  content,
		TaskID:   taskID,
		AuthorID: actor.UserID,
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

// ListComments lists a task's comments in creation order.
func (s *CommentService) ListComments(actor authz.Actor, taskID uint64) ([]models.Comment, error) {
	if _, err := s.requireTaskMember(actor, taskID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (s *CommentService) requireTaskMember(actor authz.Actor, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("task_not_found", "task not found")
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task.Deleted {
		return nil, apperrors.NotFound("task_deleted", "task not found")
	}
	if err := s.auth.Require(actor, task.WorkGroupID, authz.ActionComment); err != nil {
		return nil, err
	}
	return task, nil
}
