package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vk/cookgrid/internal/serialization"
)

// DefaultWorkerCount is the number of targets cooked concurrently.
const DefaultWorkerCount = 4

// DefaultWatchDebounce is how long watch mode waits for writes to settle.
const DefaultWatchDebounce = 100 * time.Millisecond

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenePath string `validate:"required"` // hcl file, hcl directory or scene document
	CookPath  string `validate:"omitempty,startswith=/"`
	OutPath   string

	Watch         bool
	WatchDebounce time.Duration `validate:"gte=0"`
	// WorkerCount bounds how many targets cook at the same time.
	WorkerCount int `validate:"gte=1"`

	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"gte=0,lte=65535"`
}

var configValidator = validator.New()

// NewConfig fills in defaults and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.WatchDebounce == 0 {
		cfg.WatchDebounce = DefaultWatchDebounce
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := configValidator.Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Param() != "" {
				return nil, fmt.Errorf("invalid %s %q: must satisfy %s=%s", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag(), fe.Param())
			}
			return nil, fmt.Errorf("invalid %s: %s check failed", fe.Field(), fe.Tag())
		}
		return nil, err
	}
	if cfg.OutPath != "" {
		if _, err := serialization.ForPath(cfg.OutPath); err != nil {
			return nil, fmt.Errorf("invalid OutPath: %w", err)
		}
	}
	return &cfg, nil
}
