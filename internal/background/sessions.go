package background

import (
	"sync"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
	"go.uber.org/zap"
)

type sessionKey struct {
	session string
	path    string
}

type sessionEntry struct {
	provider Provider
	lastUsed time.Time
}

// Sessions owns the stored backgrounds of live streams. Each (session, path)
// pair gets its own provider: video cursors so two streams using the same file
// never advance each other's position, and decoded images so a stream reads its
// background from disk once.
type Sessions struct {
	decoder port.VideoDecoder
	idle    time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[sessionKey]*sessionEntry
}

func NewSessions(decoder port.VideoDecoder, idle time.Duration, logger *zap.Logger) *Sessions {
	return &Sessions{
		decoder: decoder,
		idle:    idle,
		logger:  logger,
		entries: make(map[sessionKey]*sessionEntry),
	}
}

// Cursor returns the cursor for session and path, creating it on first use.
func (s *Sessions) Cursor(session, path string) *VideoCursor {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{session, path}
	if e, ok := s.entries[key]; ok {
		if c, ok := e.provider.(*VideoCursor); ok {
			e.lastUsed = time.Now()
			return c
		}
	}
	c := NewVideoCursor(path, s.decoder, s.logger)
	s.entries[key] = &sessionEntry{provider: c, lastUsed: time.Now()}
	return c
}

// Image returns the decoded image for session and path. Only successful loads
// are kept, so a broken file is retried on the next call.
func (s *Sessions) Image(session, path string) (*Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{session, path}
	if e, ok := s.entries[key]; ok {
		if img, ok := e.provider.(*Image); ok {
			e.lastUsed = time.Now()
			return img, nil
		}
	}
	img, err := NewImage(path)
	if err != nil {
		return nil, err
	}
	s.entries[key] = &sessionEntry{provider: img, lastUsed: time.Now()}
	return img, nil
}

// Release closes every provider held by session.
func (s *Sessions) Release(session string) {
	s.mu.Lock()
	var closing []Provider
	for key, e := range s.entries {
		if key.session == session {
			closing = append(closing, e.provider)
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()

	closeAll(closing)
}

// Sweep closes providers not used since now-idle and returns how many were dropped.
func (s *Sessions) Sweep(now time.Time) int {
	s.mu.Lock()
	var closing []Provider
	for key, e := range s.entries {
		if now.Sub(e.lastUsed) > s.idle {
			closing = append(closing, e.provider)
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()

	closeAll(closing)
	if len(closing) > 0 {
		s.logger.Debug("expired background sessions", zap.Int("count", len(closing)))
	}
	return len(closing)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Sessions) Close() {
	s.mu.Lock()
	closing := make([]Provider, 0, len(s.entries))
	for _, e := range s.entries {
		closing = append(closing, e.provider)
	}
	s.entries = make(map[sessionKey]*sessionEntry)
	s.mu.Unlock()

	closeAll(closing)
}

func closeAll(providers []Provider) {
	for _, p := range providers {
		p.Close()
	}
}
