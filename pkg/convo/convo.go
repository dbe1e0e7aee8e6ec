// Package convo holds per-session conversation state: a bounded ring of
// completed turns, the entity bag carried between them, and any pending
// table clarification awaiting the user's answer.
package convo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/models"
)

// maxTurns bounds the per-session history ring.
const maxTurns = 20

// Context is one session's conversation state. Not safe for concurrent use;
// the manager serializes access per session.
type Context struct {
	SessionID string                    `json:"session_id"`
	Turns     []models.ConversationTurn `json:"turns"`

	ActiveTable    string           `json:"active_table,omitempty"`
	ActiveEntities *models.Entities `json:"active_entities,omitempty"`

	// UserName is remembered when the user introduces themselves.
	UserName string `json:"user_name,omitempty"`

	// DateHint is a user-declared "today is ..." override for date-relative
	// questions.
	DateHint string `json:"date_hint,omitempty"`

	Pending *models.PendingClarification `json:"pending_clarification,omitempty"`
}

// AddTurn appends a completed turn, evicting the oldest past the ring bound,
// and refreshes the active table/entities mirrors.
func (c *Context) AddTurn(turn models.ConversationTurn) {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	c.Turns = append(c.Turns, turn)
	if len(c.Turns) > maxTurns {
		c.Turns = c.Turns[len(c.Turns)-maxTurns:]
	}
	if turn.TableUsed != "" {
		c.ActiveTable = turn.TableUsed
	}
	if turn.Entities != nil {
		c.ActiveEntities = turn.Entities
	}
}

// LastTurn returns the most recent turn, nil when the session is fresh.
func (c *Context) LastTurn() *models.ConversationTurn {
	if len(c.Turns) == 0 {
		return nil
	}
	return &c.Turns[len(c.Turns)-1]
}

// LastResultValues returns the most recent turn's extracted result row.
func (c *Context) LastResultValues() map[string]string {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if len(c.Turns[i].ResultValues) > 0 {
			return c.Turns[i].ResultValues
		}
	}
	return nil
}

// LastAnalysisData returns the most recent turn's analysis residue, for
// projection follow-ups.
func (c *Context) LastAnalysisData() *models.AnalysisData {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].AnalysisData != nil {
			return c.Turns[i].AnalysisData
		}
	}
	return nil
}

// SetPending places the session into the awaiting-clarification state.
func (c *Context) SetPending(p *models.PendingClarification) {
	if p != nil && p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	c.Pending = p
}

// ClearPending leaves the awaiting-clarification state.
func (c *Context) ClearPending() { c.Pending = nil }

// Manager owns the sessions. Contexts are created on first use and
// optionally persisted to disk as one JSON file per session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Context
	dir      string
	logger   *zap.Logger
}

// NewManager creates a session manager. dir may be empty to disable
// persistence.
func NewManager(dir string, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: map[string]*Context{},
		dir:      dir,
		logger:   logger.Named("convo"),
	}
}

// Get returns the context for a session, creating it on first use. An empty
// id gets a fresh session with a generated id.
func (m *Manager) Get(sessionID string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if c, ok := m.sessions[sessionID]; ok {
		return c
	}

	c := m.loadSession(sessionID)
	if c == nil {
		c = &Context{SessionID: sessionID}
	}
	m.sessions[sessionID] = c
	return c
}

// Save persists a session's state when a sessions directory is configured.
func (m *Manager) Save(c *Context) error {
	if m.dir == "" {
		return nil
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sessions dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", c.SessionID, err)
	}

	path := m.sessionPath(c.SessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (m *Manager) loadSession(sessionID string) *Context {
	if m.dir == "" {
		return nil
	}
	data, err := os.ReadFile(m.sessionPath(sessionID))
	if err != nil {
		return nil
	}
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		m.logger.Warn("Discarding unreadable session file",
			zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	c.SessionID = sessionID
	return &c
}

func (m *Manager) sessionPath(sessionID string) string {
	return filepath.Join(m.dir, sessionID+".json")
}
