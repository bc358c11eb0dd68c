package acceptance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/doease/doease/internal/backend"
	"github.com/doease/doease/internal/domain"
	"github.com/google/uuid"
)

// fakeRemote is an in-memory stand-in for the hosted account/data service.
// It mirrors the facade semantics the real client provides: credential auth,
// a single held session, auth events, profile provisioning on sign-up, and
// per-user task rows.
type fakeRemote struct {
	mu sync.Mutex

	passwords map[string]string
	userIDs   map[string]string
	profiles  map[string]*domain.Profile
	tasks     map[string][]domain.Task
	nextTask  int64

	session *domain.Session

	handlers map[int]backend.EventHandler
	nextSub  int

	healthErr error
}

func newFakeRemote() *fakeRemote {
	r := &fakeRemote{}
	r.reset()
	return r
}

// reset wipes accounts, rows and the held session. Event subscriptions
// survive, the application under test keeps its one for its lifetime.
func (r *fakeRemote) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passwords = make(map[string]string)
	r.userIDs = make(map[string]string)
	r.profiles = make(map[string]*domain.Profile)
	r.tasks = make(map[string][]domain.Task)
	r.nextTask = 0
	r.session = nil
	if r.handlers == nil {
		r.handlers = make(map[int]backend.EventHandler)
	}
	r.healthErr = nil
}

func (r *fakeRemote) emit(event domain.AuthEvent, session *domain.Session) {
	r.mu.Lock()
	handlers := make([]backend.EventHandler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h(event, session)
	}
}

func (r *fakeRemote) newSession(userID, email string) *domain.Session {
	return &domain.Session{
		AccessToken:  "access-" + uuid.NewString(),
		RefreshToken: "refresh-" + uuid.NewString(),
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		User:         &domain.AuthIdentity{ID: userID, Email: email, CreatedAt: time.Now()},
	}
}

func (r *fakeRemote) SignUp(ctx context.Context, params backend.SignUpParams) (*domain.Session, error) {
	r.mu.Lock()
	if _, exists := r.passwords[params.Email]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("user already registered")
	}
	userID := uuid.NewString()
	r.passwords[params.Email] = params.Password
	r.userIDs[params.Email] = userID
	// The hosted service provisions the profile row from sign-up metadata.
	r.profiles[userID] = &domain.Profile{
		ID:                        userID,
		Username:                  params.Username,
		Mobile:                    params.Mobile,
		Timezone:                  params.Timezone,
		EmailNotificationsEnabled: true,
		UpdatedAt:                 time.Now(),
	}
	session := r.newSession(userID, params.Email)
	r.session = session
	r.mu.Unlock()

	r.emit(domain.SignedIn, session)
	return session, nil
}

func (r *fakeRemote) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	r.mu.Lock()
	stored, ok := r.passwords[email]
	if !ok || stored != password {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: invalid login credentials", backend.ErrUnauthorized)
	}
	session := r.newSession(r.userIDs[email], email)
	r.session = session
	r.mu.Unlock()

	r.emit(domain.SignedIn, session)
	return session, nil
}

func (r *fakeRemote) SignOut(ctx context.Context) error {
	r.mu.Lock()
	r.session = nil
	r.mu.Unlock()

	r.emit(domain.SignedOut, nil)
	return nil
}

func (r *fakeRemote) GetSession(ctx context.Context) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session, nil
}

func (r *fakeRemote) GetIdentity(ctx context.Context) (*domain.AuthIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Identity(), nil
}

func (r *fakeRemote) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[userID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (r *fakeRemote) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[userID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	if update.Username != nil {
		profile.Username = *update.Username
	}
	if update.Mobile != nil {
		profile.Mobile = update.Mobile
	}
	if update.Timezone != nil {
		profile.Timezone = update.Timezone
	}
	if update.CurrentStreak != nil {
		profile.CurrentStreak = *update.CurrentStreak
	}
	if update.LastStreakUpdated != nil {
		if ts, err := time.Parse(time.RFC3339, *update.LastStreakUpdated); err == nil {
			profile.LastStreakUpdated = &ts
		}
	}
	if update.EmailNotificationsEnabled != nil {
		profile.EmailNotificationsEnabled = *update.EmailNotificationsEnabled
	}
	profile.UpdatedAt = time.Now()
	copied := *profile
	return &copied, nil
}

func (r *fakeRemote) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Task, len(r.tasks[userID]))
	copy(out, r.tasks[userID])
	return out, nil
}

func (r *fakeRemote) AddTask(ctx context.Context, userID string, task domain.NewTask) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextTask++
	row := domain.Task{
		ID:        r.nextTask,
		CreatedAt: time.Now(),
		UserID:    userID,
		Name:      task.Name,
		Priority:  task.Priority,
		DueDate:   task.DueDate,
	}
	// Newest first, matching the remote ordering contract.
	r.tasks[userID] = append([]domain.Task{row}, r.tasks[userID]...)
	return &row, nil
}

func (r *fakeRemote) UpdateTask(ctx context.Context, taskID int64, update domain.TaskUpdate) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID := range r.tasks {
		for i := range r.tasks[userID] {
			if r.tasks[userID][i].ID != taskID {
				continue
			}
			row := &r.tasks[userID][i]
			if update.Name != nil {
				row.Name = *update.Name
			}
			if update.Completed != nil {
				row.Completed = *update.Completed
			}
			if update.Priority != nil {
				row.Priority = *update.Priority
			}
			if update.DueDate != nil {
				row.DueDate = *update.DueDate
			}
			copied := *row
			return &copied, nil
		}
	}
	return nil, backend.ErrNotFound
}

func (r *fakeRemote) DeleteTask(ctx context.Context, taskID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID := range r.tasks {
		for i := range r.tasks[userID] {
			if r.tasks[userID][i].ID == taskID {
				r.tasks[userID] = append(r.tasks[userID][:i], r.tasks[userID][i+1:]...)
				return nil
			}
		}
	}
	return backend.ErrNotFound
}

func (r *fakeRemote) SubscribeAuthEvents(handler backend.EventHandler) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.handlers[id] = handler
	session := r.session
	r.mu.Unlock()

	go handler(domain.InitialSession, session)

	return func() {
		r.mu.Lock()
		delete(r.handlers, id)
		r.mu.Unlock()
	}
}

func (r *fakeRemote) HealthCheck(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.healthErr
}
