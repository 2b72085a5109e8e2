// internal/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/cache"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/game"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/store"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by a session that has been shut down.
var ErrClosed = errors.New("session closed")

// Publisher queues committed events for the historian.
type Publisher interface {
	Publish(ctx context.Context, rec cache.EventRecord) error
}

// Update is pushed to a subscriber after every committed intent.
type Update struct {
	State  models.RoomView `json:"state"`
	Events []game.Event    `json:"events,omitempty"`
}

// SubscriberFunc receives updates in commit order. It is called with the
// session lock held and must not block.
type SubscriberFunc func(Update)

type subscriber struct {
	viewer string
	fn     SubscriberFunc
}

// Session is the single writer of one room. Every intent is applied to a
// copy of the room, persisted, and only then committed and broadcast.
type Session struct {
	code  string
	mu    sync.Mutex
	room  *models.Room
	rng   *rand.Rand
	store store.Store
	pub   Publisher
	log   *logrus.Entry
	now   func() time.Time

	subs       map[int]subscriber
	nextSubID  int
	lastActive time.Time

	// OnGameOver is invoked once per entry into GAME_OVER with a copy of the room.
	OnGameOver func(room *models.Room)

	tickEvery time.Duration
	stopCh    chan struct{}
	closed    bool
	wg        sync.WaitGroup
}

func newSession(room *models.Room, st store.Store, pub Publisher, logger *logrus.Logger, tickEvery time.Duration) *Session {
	return &Session{
		code:       room.Code,
		room:       room,
		rng:        rand.New(rand.NewSource(seedFor(room))),
		store:      st,
		pub:        pub,
		log:        logger.WithField("room", room.Code),
		now:        time.Now,
		subs:       make(map[int]subscriber),
		lastActive: time.Now(),
		tickEvery:  tickEvery,
		stopCh:     make(chan struct{}),
	}
}

func seedFor(room *models.Room) int64 {
	if room.Rules.Seed != 0 {
		return room.Rules.Seed
	}
	return time.Now().UnixNano()
}

// Code returns the room code.
func (s *Session) Code() string {
	return s.code
}

// Room returns a copy of the committed room.
func (s *Session) Room() *models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Clone()
}

// View returns the committed room as seen by viewer.
func (s *Session) View(viewer string) models.RoomView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.ViewFor(viewer)
}

// Dispatch applies one intent. On success the new state is persisted,
// committed, and pushed to subscribers; on failure nothing changes.
func (s *Session) Dispatch(ctx context.Context, in game.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	prev := s.room
	next, events, err := game.Apply(prev, in, s.rng, s.now())
	if err != nil {
		return err
	}
	next.Version = prev.Version + 1

	if err := s.store.Update(ctx, next); err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.reloadLocked(ctx)
		}
		return fmt.Errorf("persist room %s: %w", prev.Code, err)
	}

	s.room = next
	if in.Actor != game.SystemActor {
		s.lastActive = s.now()
	}
	if in.Type == game.IntentReset || next.Rules.Seed != prev.Rules.Seed {
		if next.Rules.Seed != 0 {
			s.rng = rand.New(rand.NewSource(next.Rules.Seed))
		}
	}

	if len(events) > 0 {
		s.log.WithFields(logrus.Fields{
			"intent":  in.Type,
			"actor":   in.Actor,
			"version": next.Version,
			"events":  len(events),
		}).Debug("intent applied")
		s.publish(next, events)
	}
	s.broadcastLocked(events)

	if prev.Status != models.PhaseGameOver && next.Status == models.PhaseGameOver && s.OnGameOver != nil {
		final := next.Clone()
		go s.OnGameOver(final)
	}
	return nil
}

// reloadLocked replaces the cached room with the stored one after another
// writer won a version race.
func (s *Session) reloadLocked(ctx context.Context) {
	fresh, err := s.store.Get(ctx, s.room.Code)
	if err != nil {
		s.log.WithError(err).Warn("reload after conflict")
		return
	}
	s.room = fresh
	s.broadcastLocked(nil)
}

// publish queues events for the historian without holding up the session.
func (s *Session) publish(room *models.Room, events []game.Event) {
	if s.pub == nil {
		return
	}
	ts := room.UpdatedAt.UnixMilli()
	records := make([]cache.EventRecord, len(events))
	for i, ev := range events {
		records[i] = cache.EventRecord{
			RoomCode:  room.Code,
			Version:   room.Version,
			Seq:       i,
			Type:      string(ev.Type),
			Actor:     ev.Actor,
			Target:    ev.Target,
			Payload:   ev.Payload,
			Timestamp: ts,
		}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, rec := range records {
			if err := s.pub.Publish(ctx, rec); err != nil {
				s.log.WithError(err).WithField("type", rec.Type).Warn("publish event")
				return
			}
		}
	}()
}

func (s *Session) broadcastLocked(events []game.Event) {
	for _, sub := range s.subs {
		sub.fn(Update{State: s.room.ViewFor(sub.viewer), Events: events})
	}
}

// Subscribe registers fn for viewer. fn immediately receives the current
// snapshot, then every committed state in order. The returned func
// unsubscribes.
func (s *Session) Subscribe(viewer string, fn SubscriberFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = subscriber{viewer: viewer, fn: fn}
	s.lastActive = s.now()
	fn(Update{State: s.room.ViewFor(viewer)})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			s.lastActive = s.now()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Session) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// idleSince reports when the session last saw a participant.
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// start launches the room clock.
func (s *Session) start() {
	if s.tickEvery <= 0 {
		return
	}
	s.wg.Add(1)
	go s.runClock()
}

func (s *Session) runClock() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.tickEvery)
			err := s.Dispatch(ctx, game.Intent{Type: game.IntentTick, Actor: game.SystemActor})
			cancel()
			if err != nil && !errors.Is(err, game.ErrNoChange) && !errors.Is(err, ErrClosed) {
				s.log.WithError(err).Warn("clock tick")
			}
		}
	}
}

// Close stops the clock and rejects further intents.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
}
