package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Christina1281995/tema-emotions/internal/dataset"
)

// Session is the transient per-login state of one labeler. Progress and the
// attached dataset are owned by the session; callers serialize access through
// Lock so a second browser tab cannot interleave submissions.
type Session struct {
	Token    string
	Author   string
	Dataset  *dataset.Dataset
	Progress *Progress

	lastSeen time.Time
	mu       sync.Mutex
}

// Lock acquires the per-session submission lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-session submission lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Manager holds active sessions keyed by token and expires idle ones on a
// cron schedule.
type Manager struct {
	logger *zap.Logger
	ttl    time.Duration
	cron   *cron.Cron

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. Sessions idle longer than ttl are
// removed by the sweeper once started.
func NewManager(ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		logger:   logger,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session for author and returns it.
func (m *Manager) Create(author string, ds *dataset.Dataset, progress *Progress) *Session {
	sess := &Session{
		Token:    uuid.New().String(),
		Author:   author,
		Dataset:  ds,
		Progress: progress,
		lastSeen: time.Now(),
	}

	m.mu.Lock()
	m.sessions[sess.Token] = sess
	m.mu.Unlock()

	return sess
}

// Get returns the session for token and refreshes its idle timer.
func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	sess.Lock()
	sess.lastSeen = time.Now()
	sess.Unlock()

	return sess, true
}

// Delete removes the session for token.
func (m *Manager) Delete(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// StartSweeper schedules periodic expiry of idle sessions. Progress is
// recomputable from storage, so expiring a session loses nothing.
func (m *Manager) StartSweeper(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, m.sweep); err != nil {
		return err
	}
	c.Start()
	m.cron = c
	return nil
}

// StopSweeper stops the expiry schedule.
func (m *Manager) StopSweeper() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	for token, sess := range m.sessions {
		sess.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.Unlock()

		if idle {
			delete(m.sessions, token)
			m.logger.Info("Expired idle session", zap.String("author", sess.Author))
		}
	}
}
