package lobby_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-lobby"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider implements lobby.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) CreateIdentityWithEmailPassword(ctx context.Context, email, password string) (*lobby.Identity, error) {
	args := m.Called(ctx, email, password)
	id, _ := args.Get(0).(*lobby.Identity)
	return id, args.Error(1)
}

func (m *MockIdentityProvider) SignInWithPopup(ctx context.Context, kind lobby.ProviderKind, grant lobby.PopupGrant) (*lobby.Identity, error) {
	args := m.Called(ctx, kind, grant)
	id, _ := args.Get(0).(*lobby.Identity)
	return id, args.Error(1)
}

func (m *MockIdentityProvider) DeleteIdentity(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

// MockRecordCreator implements lobby.RecordCreator
type MockRecordCreator struct {
	mock.Mock
}

func (m *MockRecordCreator) CreateUserRecord(ctx context.Context, identity *lobby.Identity, isNewRegistration bool) error {
	args := m.Called(ctx, identity, isNewRegistration)
	return args.Error(0)
}

// MockOrphanHandler implements lobby.OrphanHandler
type MockOrphanHandler struct {
	mock.Mock
}

func (m *MockOrphanHandler) HandleOrphan(ctx context.Context, identity *lobby.Identity, cause error) error {
	args := m.Called(ctx, identity, cause)
	return args.Error(0)
}

type memoryLedger struct {
	mu       sync.Mutex
	entries  map[string]lobby.OrphanEntry
	order    []string
	resolved []string
	markErr  error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{entries: map[string]lobby.OrphanEntry{}}
}

func (l *memoryLedger) Mark(_ context.Context, entry lobby.OrphanEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.markErr != nil {
		return l.markErr
	}
	if _, ok := l.entries[entry.UID]; !ok {
		l.order = append(l.order, entry.UID)
	}
	l.entries[entry.UID] = entry
	return nil
}

func (l *memoryLedger) Pending(_ context.Context, limit int) ([]lobby.OrphanEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []lobby.OrphanEntry
	for _, uid := range l.order {
		e := l.entries[uid]
		if e.ResolvedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (l *memoryLedger) Resolve(_ context.Context, uid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[uid]
	if !ok {
		return nil
	}
	now := e.MarkedAt
	e.ResolvedAt = &now
	l.entries[uid] = e
	l.resolved = append(l.resolved, uid)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []lobby.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event lobby.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []lobby.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]lobby.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}
