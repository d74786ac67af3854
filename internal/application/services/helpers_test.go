package services

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/user"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"log/slog"
)

// testLogger builds a quiet channeled logger for tests.
func testLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		DefaultLevel:    slog.LevelError + 4,
		ChannelLevels:   map[logging.Channel]slog.Level{},
	})
	if err != nil {
		t.Fatalf("failed to build test logger: %v", err)
	}
	return logger
}

func testTracker() *performance.Tracker {
	return performance.NewTracker(performance.DefaultTrackerConfig())
}

// mockClock is a manually advanced Clock.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock(start time.Time) *mockClock {
	return &mockClock{now: start}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *mockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// mockAdapter is an in-memory storage adapter whose availability and errors
// are controllable.
type mockAdapter struct {
	mu          sync.Mutex
	data        map[string]string
	unavailable bool
	failOps     bool
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{data: make(map[string]string)}
}

func (m *mockAdapter) Probe() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unavailable
}

func (m *mockAdapter) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOps {
		return "", false, errStorage
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockAdapter) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOps {
		return errStorage
	}
	m.data[key] = value
	return nil
}

func (m *mockAdapter) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOps {
		return errStorage
	}
	delete(m.data, key)
	return nil
}

func (m *mockAdapter) Keys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOps {
		return nil, errStorage
	}
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

var errStorage = &storageError{}

type storageError struct{}

func (*storageError) Error() string { return "storage unavailable" }

// mockGuestRepo records guest rows in memory.
type mockGuestRepo struct {
	mu     sync.Mutex
	guests map[string]*user.Guest
	linked map[string]string
}

func newMockGuestRepo() *mockGuestRepo {
	return &mockGuestRepo{
		guests: make(map[string]*user.Guest),
		linked: make(map[string]string),
	}
}

func (r *mockGuestRepo) FindByID(id string) (*user.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.guests[id], nil
}

func (r *mockGuestRepo) FindByLeadID(leadID string) (*user.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.guests {
		if g.LeadID != nil && *g.LeadID == leadID {
			return g, nil
		}
	}
	return nil, nil
}

func (r *mockGuestRepo) Create(guest *user.Guest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guests[guest.ID] = guest
	return nil
}

func (r *mockGuestRepo) LinkToLead(guestID, leadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linked[guestID] = leadID
	if g, ok := r.guests[guestID]; ok {
		g.LeadID = &leadID
	}
	return nil
}

func (r *mockGuestRepo) Exists(guestID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.guests[guestID]
	return ok, nil
}
