package dto

import "github.com/doease/doease/internal/domain"

// SignUpRequest represents an account creation request
type SignUpRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	Username string  `json:"username" binding:"required"`
	Mobile   *string `json:"mobile"`
	Timezone *string `json:"timezone"`
}

// SignInRequest represents a sign-in request
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AddTaskRequest represents a task creation request
type AddTaskRequest struct {
	Name     string          `json:"name" binding:"required"`
	Priority domain.Priority `json:"priority"`
	DueDate  string          `json:"due_date" binding:"required"`
}

// UpdateProfileRequest represents a settings form submission
type UpdateProfileRequest struct {
	Username                  *string `json:"username"`
	Mobile                    *string `json:"mobile"`
	Timezone                  *string `json:"timezone"`
	EmailNotificationsEnabled *bool   `json:"email_notifications_enabled"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
