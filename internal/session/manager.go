// internal/session/manager.go
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/game"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	codeLength   = 4
	codeAttempts = 16
)

// ErrNoCodes is returned when no free room code could be found.
var ErrNoCodes = errors.New("no free room code")

// Options tunes the sessions a Manager creates.
type Options struct {
	TickInterval time.Duration
	IdleTimeout  time.Duration
	OnGameOver   func(room *models.Room)
}

// Manager owns the live sessions of this process and loads rooms from the
// store on demand.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    store.Store
	pub      Publisher
	log      *logrus.Logger
	opts     Options
	codes    *rand.Rand
	now      func() time.Time
}

func NewManager(st store.Store, pub Publisher, logger *logrus.Logger, opts Options) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		store:    st,
		pub:      pub,
		log:      logger,
		opts:     opts,
		codes:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// NormalizeCode upper-cases and trims a client supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (m *Manager) newCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[m.codes.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// Create opens a new room hosted by hostID. rules overrides the variant's
// defaults and may be nil.
func (m *Manager) Create(ctx context.Context, variant models.Variant, hostID string, rules map[string]interface{}) (*Session, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: unknown variant %q", game.ErrValidation, variant)
	}
	base := models.DefaultRules(variant)
	if rules != nil {
		parsed, err := models.ParseRules(rules, base)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", game.ErrValidation, err)
		}
		base = parsed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := m.newCode()
		if _, live := m.sessions[code]; live {
			continue
		}
		room := models.NewRoom(code, variant, hostID, base, m.now())
		err := m.store.Create(ctx, room)
		if errors.Is(err, store.ErrExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}
		s := m.open(room)
		m.log.WithFields(logrus.Fields{"room": code, "variant": variant, "host": hostID}).Info("room created")
		return s, nil
	}
	return nil, ErrNoCodes
}

// Get returns the live session for code, loading it from the store if this
// process has not opened it yet.
func (m *Manager) Get(ctx context.Context, code string) (*Session, error) {
	code = NormalizeCode(code)

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[code]; ok {
		return s, nil
	}
	room, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	m.log.WithField("room", code).Debug("room loaded from store")
	return m.open(room), nil
}

// open registers and starts a session. Caller holds m.mu.
func (m *Manager) open(room *models.Room) *Session {
	s := newSession(room, m.store, m.pub, m.log, m.opts.TickInterval)
	s.OnGameOver = m.opts.OnGameOver
	m.sessions[room.Code] = s
	s.start()
	return s
}

// Summary describes a live session for the admin listing.
type Summary struct {
	Code        string         `json:"code"`
	Variant     models.Variant `json:"variant"`
	Status      models.Phase   `json:"status"`
	Players     int            `json:"players"`
	Subscribers int            `json:"subscribers"`
	Version     int64          `json:"version"`
	LastActive  time.Time      `json:"lastActive"`
}

// List returns the live sessions ordered by code.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	out := make([]Summary, 0, len(live))
	for _, s := range live {
		room := s.Room()
		out = append(out, Summary{
			Code:        room.Code,
			Variant:     room.Variant,
			Status:      room.Status,
			Players:     len(room.Players),
			Subscribers: s.Subscribers(),
			Version:     room.Version,
			LastActive:  s.idleSince(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Reap closes sessions that have had no subscribers and no participant
// intents for longer than the idle timeout. The rooms stay in the store.
func (m *Manager) Reap() int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var idle []*Session
	for code, s := range m.sessions {
		if s.Subscribers() == 0 && s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, code)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
		m.log.WithField("room", s.Code()).Info("idle room unloaded")
	}
	return len(idle)
}

// Run reaps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reap()
		}
	}
}

// Close shuts every live session down.
func (m *Manager) Close() {
	m.mu.Lock()
	live := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range live {
		s.Close()
	}
}
