package orgauth_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	orgauth "github.com/scriberly/go-orgauth"
)

type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

func newQuietLogger() *MockLogger {
	logger := &MockLogger{}
	logger.On("Debug", mock.Anything, mock.Anything).Maybe()
	logger.On("Info", mock.Anything, mock.Anything).Maybe()
	logger.On("Warn", mock.Anything, mock.Anything).Maybe()
	logger.On("Error", mock.Anything, mock.Anything).Maybe()
	return logger
}

type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Name() string {
	args := m.Called()
	return args.String(0)
}

// recordingSink collects activity events so tests can assert on the
// audit trail without a real backend.
type recordingSink struct {
	mu     sync.Mutex
	events []orgauth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event orgauth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) byType(eventType orgauth.ActivityEventType) []orgauth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []orgauth.ActivityEvent{}
	for _, event := range s.events {
		if event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}

type sentEmail struct {
	Kind    string
	ToEmail string
	Token   string
}

// stubNotifier records outgoing email intents and can be told to
// simulate delivery failures.
type stubNotifier struct {
	mu    sync.Mutex
	fail  bool
	sent  []sentEmail
}

func (n *stubNotifier) record(kind, toEmail, token string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{Kind: kind, ToEmail: toEmail, Token: token})
	return !n.fail
}

func (n *stubNotifier) SendInvitationEmail(_ context.Context, toEmail, _, _, _, token, _ string) bool {
	return n.record("invitation", toEmail, token)
}

func (n *stubNotifier) SendWelcomeEmail(_ context.Context, toEmail, _, _ string) bool {
	return n.record("welcome", toEmail, "")
}

func (n *stubNotifier) SendPasswordResetEmail(_ context.Context, toEmail, _, token string) bool {
	return n.record("password_reset", toEmail, token)
}

func (n *stubNotifier) SendVerificationEmail(_ context.Context, toEmail, _, token string) bool {
	return n.record("verification", toEmail, token)
}

func (n *stubNotifier) byKind(kind string) []sentEmail {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := []sentEmail{}
	for _, email := range n.sent {
		if email.Kind == kind {
			out = append(out, email)
		}
	}
	return out
}
