package constants

// Context keys shared between middleware and handlers.
const (
	ContextKeyUserID    = "user_id"
	ContextKeySuperuser = "is_superuser"
	ContextKeyGroup     = "work_group"
	ContextKeyTask      = "task"
)

const MinPasswordLength = 8

// Pagination bounds.
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)
