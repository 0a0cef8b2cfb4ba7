package auth_test

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/mock"

	"github.com/docuflow/go-auth"
)

// TestIdentity implements auth.Identity
type TestIdentity struct {
	id       string
	username string
	email    string
	role     string
}

func (t TestIdentity) ID() string       { return t.id }
func (t TestIdentity) Username() string { return t.username }
func (t TestIdentity) Email() string    { return t.email }
func (t TestIdentity) Role() string     { return t.role }

func newTestIdentity() TestIdentity {
	return TestIdentity{
		id:       "3a4c9f0e-9f0f-4a6e-8f68-40a6a4d1e742",
		username: "lan.pham",
		email:    "lan.pham@example.com",
		role:     auth.RoleMember,
	}
}

// MockIdentityProvider implements auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (auth.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (auth.Identity, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.Identity), args.Error(1)
}

// MockUserTracker implements auth.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// failingStore errors on every operation, used to exercise store outage
// behavior.
type failingStore struct{}

func (failingStore) SetWithTTL(context.Context, string, string, time.Duration) error {
	return errors.New("store down", errors.CategoryOperation)
}

func (failingStore) Get(context.Context, string) (string, error) {
	return "", errors.New("store down", errors.CategoryOperation)
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("store down", errors.CategoryOperation)
}

func (failingStore) Exists(context.Context, string) (bool, error) {
	return false, errors.New("store down", errors.CategoryOperation)
}

// recordingSink captures activity events.
type recordingSink struct {
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) has(eventType auth.ActivityEventType) bool {
	for _, e := range s.events {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}

// capturingMailer records the last code handed to it.
type capturingMailer struct {
	email string
	code  string
	sent  int
}

func (m *capturingMailer) SendPasswordRecoveryCode(_ context.Context, email, code string) error {
	m.email = email
	m.code = code
	m.sent++
	return nil
}

// fakeResetStore implements auth.PasswordResetStore in memory.
type fakeResetStore struct {
	hashes map[string]string
	err    error
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{hashes: map[string]string{}}
}

func (s *fakeResetStore) ResetPasswordByEmail(_ context.Context, email, passwordHash string) error {
	if s.err != nil {
		return s.err
	}
	s.hashes[email] = passwordHash
	return nil
}
