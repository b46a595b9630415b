package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"quizhub/internal/domain"
)

// SessionRegistry is the process-wide code -> session map. It is the only
// mutable state shared across connections; each session's internals are owned
// by the session itself.
type SessionRegistry interface {
	// Put registers a session under its code, failing when the code is taken.
	Put(code string, session *Session) bool
	Get(code string) (*Session, bool)
	Delete(code string)
	Codes() []string
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// SettingsRepository supplies the application settings frozen into a session
// at creation time.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GameService creates sessions and owns registry lifecycle (including idle
// eviction, so abandoned codes do not accumulate forever).
type GameService struct {
	registry SessionRegistry
	quizzes  QuizRepository
	settings SettingsRepository
	idleTTL  time.Duration
	codeLen  int
}

func NewGameService(registry SessionRegistry, quizzes QuizRepository, settings SettingsRepository, idleTTL time.Duration, codeLen int) *GameService {
	if idleTTL <= 0 {
		idleTTL = time.Hour
	}
	if codeLen <= 0 {
		codeLen = 4
	}
	return &GameService{
		registry: registry,
		quizzes:  quizzes,
		settings: settings,
		idleTTL:  idleTTL,
		codeLen:  codeLen,
	}
}

// CreateSession loads the quiz snapshot and current settings, allocates a
// unique join code and registers a fresh WAITING session.
func (g *GameService) CreateSession(ctx context.Context, quizID string) (*Session, error) {
	quiz, err := g.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	settings, err := g.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	for attempt := 0; attempt < 50; attempt++ {
		code := generateCode(g.codeLen)
		session := NewSession(uuid.NewString(), code, quiz, settings)
		if g.registry.Put(code, session) {
			return session, nil
		}
	}
	return nil, fmt.Errorf("could not allocate a unique session code")
}

// Session resolves a join code to its live session.
func (g *GameService) Session(code string) (*Session, error) {
	session, ok := g.registry.Get(code)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// EvictIdle removes sessions with no connections and no recent activity.
// Returns how many were dropped.
func (g *GameService) EvictIdle(now time.Time) int {
	evicted := 0
	for _, code := range g.registry.Codes() {
		session, ok := g.registry.Get(code)
		if !ok {
			continue
		}
		if session.Idle(now, g.idleTTL) {
			g.registry.Delete(code)
			evicted++
		}
	}
	return evicted
}

// RunJanitor sweeps for idle sessions until the context is canceled.
func (g *GameService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := g.EvictIdle(now); n > 0 {
				log.Printf("evicted %d idle session(s)", n)
			}
		}
	}
}

func generateCode(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(buf)
}
