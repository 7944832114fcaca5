package app

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"

	"livequiz-service/internal/game"
)

// Config holds the tunable rules of a game.
type Config struct {
	Rules  game.ScoreRules
	Pacing game.Pacing
	// BreakSize is how many rows the between-question leaderboard shows.
	BreakSize int
	// WinnersSize is how many rows the game-over podium shows.
	WinnersSize int
	// LeaderboardLimit caps public leaderboards and the final standings.
	LeaderboardLimit int
}

// DefaultConfig mirrors the classroom defaults: 15s questions, top 10 breaks, top 3 winners.
func DefaultConfig() Config {
	return Config{
		Rules:            game.DefaultScoreRules(),
		Pacing:           game.PacingManual,
		BreakSize:        10,
		WinnersSize:      3,
		LeaderboardLimit: 50,
	}
}

// Validate rejects settings the service cannot honour. Only manual pacing is implemented, so
// any other mode fails here instead of being silently ignored.
func (c Config) Validate() error {
	if c.Pacing != "" && c.Pacing != game.PacingManual {
		return fmt.Errorf("unsupported pacing %q: only %q is implemented", c.Pacing, game.PacingManual)
	}
	if c.Rules.Budget <= 0 {
		return fmt.Errorf("question time must be positive, got %s", c.Rules.Budget)
	}
	if c.Rules.Base < 0 || c.Rules.MaxBonus < 0 {
		return fmt.Errorf("scores must not be negative (base %d, bonus %d)", c.Rules.Base, c.Rules.MaxBonus)
	}
	if c.BreakSize <= 0 || c.WinnersSize <= 0 || c.LeaderboardLimit <= 0 {
		return fmt.Errorf("leaderboard sizes must be positive")
	}
	return nil
}

// Repositories groups the store ports so individual ones can be decorated (e.g. cached).
type Repositories struct {
	Sessions     SessionRepository
	Questions    QuestionRepository
	Participants ParticipantRepository
	Responses    ResponseRepository
}

// RepositoriesFrom splits a Store into its ports.
func RepositoriesFrom(store Store) Repositories {
	return Repositories{Sessions: store, Questions: store, Participants: store, Responses: store}
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions     SessionRepository
	questions    QuestionRepository
	participants ParticipantRepository
	responses    ResponseRepository
	broadcaster  Broadcaster
	clock        clockwork.Clock
	cfg          Config
	validate     *validator.Validate

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithClock swaps the wall clock, mainly for deterministic deadlines in tests.
func WithClock(clock clockwork.Clock) Option {
	return func(s *QuizService) { s.clock = clock }
}

// WithBroadcaster sets where realtime events are sent.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *QuizService) {
		if b != nil {
			s.broadcaster = b
		}
	}
}

func NewQuizService(repos Repositories, cfg Config, opts ...Option) *QuizService {
	if cfg.Pacing == "" {
		cfg.Pacing = game.PacingManual
	}
	s := &QuizService{
		sessions:     repos.Sessions,
		questions:    repos.Questions,
		participants: repos.Participants,
		responses:    repos.Responses,
		broadcaster:  noopBroadcaster{},
		clock:        clockwork.NewRealClock(),
		cfg:          cfg,
		validate:     validator.New(),
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the rules the service runs with.
func (s *QuizService) Config() Config {
	return s.cfg
}

const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newJoinCode returns a 6-character display code. It is not an identity and need not be unique.
func (s *QuizService) newJoinCode() string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	b := make([]byte, 6)
	for i := range b {
		b[i] = joinCodeAlphabet[s.rnd.Intn(len(joinCodeAlphabet))]
	}
	return string(b)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, string, any) {}
