package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" validate:"required,numeric"`
	} `yaml:"server"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`
	Store struct {
		Driver string `yaml:"driver" validate:"oneof=memory redis postgres"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Quiz struct {
		// TTL is how long question lists stay cached.
		TTL              string `yaml:"ttl"`
		QuestionTime     string `yaml:"questionTime"`
		Pacing           string `yaml:"pacing" validate:"oneof=manual"`
		// Pointers so an explicit 0 survives defaulting.
		BaseScore        *int   `yaml:"baseScore" validate:"omitempty,gte=0"`
		MaxBonus         *int   `yaml:"maxBonus" validate:"omitempty,gte=0"`
		BreakSize        int    `yaml:"breakSize" validate:"gt=0"`
		WinnersSize      int    `yaml:"winnersSize" validate:"gt=0"`
		LeaderboardLimit int    `yaml:"leaderboardLimit" validate:"gt=0"`
	} `yaml:"quiz"`
	Admin struct {
		Passcode  string `yaml:"passcode"`
		JWTSecret string `yaml:"jwtSecret"`
		TokenTTL  string `yaml:"tokenTTL"`
	} `yaml:"admin"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load reads YAML config from path, applies environment overrides and defaults, then validates.
// A missing file is not an error; everything can come from the environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Postgres.URL, "DATABASE_URL")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Admin.Passcode, "ADMIN_PASSCODE")
	setString(&cfg.Admin.JWTSecret, "JWT_SECRET")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
	if v, err := strconv.ParseBool(os.Getenv("LOG_PRETTY")); err == nil {
		cfg.Log.Pretty = v
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Quiz.Pacing == "" {
		cfg.Quiz.Pacing = "manual"
	}
	if cfg.Quiz.BaseScore == nil {
		cfg.Quiz.BaseScore = intPtr(10)
	}
	if cfg.Quiz.MaxBonus == nil {
		cfg.Quiz.MaxBonus = intPtr(10)
	}
	if cfg.Quiz.BreakSize == 0 {
		cfg.Quiz.BreakSize = 10
	}
	if cfg.Quiz.WinnersSize == 0 {
		cfg.Quiz.WinnersSize = 3
	}
	if cfg.Quiz.LeaderboardLimit == 0 {
		cfg.Quiz.LeaderboardLimit = 50
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func intPtr(v int) *int { return &v }

// IntOr dereferences p, or returns fallback when it is nil.
func IntOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

// Validate checks field rules and the cross-section requirements of the chosen store driver.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	switch cfg.Store.Driver {
	case "redis":
		if cfg.Redis.Addr == "" {
			return errors.New("invalid config: store.driver redis needs redis.addr")
		}
	case "postgres":
		if cfg.Postgres.URL == "" {
			return errors.New("invalid config: store.driver postgres needs postgres.url")
		}
	}
	if d := TTLDuration(cfg.Quiz.QuestionTime, 15*time.Second); d <= 0 {
		return errors.New("invalid config: quiz.questionTime must be positive")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
