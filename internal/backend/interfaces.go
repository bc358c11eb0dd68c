package backend

import (
	"context"

	"github.com/doease/doease/internal/domain"
)

// SignUpParams carries the fields submitted on account creation. Username,
// mobile and timezone travel as identity metadata; the remote service's
// provisioning trigger turns them into a profile row.
type SignUpParams struct {
	Email    string
	Password string
	Username string
	Mobile   *string
	Timezone *string
}

// EventHandler receives auth-state transitions together with the session
// current at the time of the event (nil after sign-out).
type EventHandler func(event domain.AuthEvent, session *domain.Session)

// API is the data-access facade over the remote account/data service. All
// operations are pass-throughs: no retries, no caching beyond the held
// session, errors normalized to the sentinels in errors.go.
type API interface {
	SignUp(ctx context.Context, params SignUpParams) (*domain.Session, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*domain.Session, error)
	GetIdentity(ctx context.Context) (*domain.AuthIdentity, error)

	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error)

	ListTasks(ctx context.Context, userID string) ([]domain.Task, error)
	AddTask(ctx context.Context, userID string, task domain.NewTask) (*domain.Task, error)
	UpdateTask(ctx context.Context, taskID int64, update domain.TaskUpdate) (*domain.Task, error)
	DeleteTask(ctx context.Context, taskID int64) error

	// SubscribeAuthEvents registers a handler for auth-state transitions
	// and returns its disposer. The handler is invoked asynchronously with
	// INITIAL_SESSION shortly after registration.
	SubscribeAuthEvents(handler EventHandler) (unsubscribe func())

	HealthCheck(ctx context.Context) error
}
