package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the service configuration, populated from the environment.
type Config struct {
	DBPath       string        `env:"TASKPILOT_DB_PATH" envDefault:"data/taskpilot.db"`
	HTTPAddr     string        `env:"TASKPILOT_HTTP_ADDR" envDefault:":8000"`
	APIURL       string        `env:"TASKPILOT_API_URL" envDefault:"http://localhost:8000"`
	ScoringURL   string        `env:"TASKPILOT_SCORING_URL"`
	CronSpec     string        `env:"TASKPILOT_CRON"`
	RetryCount   int           `env:"TASKPILOT_RETRY_COUNT" envDefault:"2"`
	RetryDelay   time.Duration `env:"TASKPILOT_RETRY_DELAY" envDefault:"3s"`
	WorkDuration time.Duration `env:"TASKPILOT_WORK_DURATION" envDefault:"1s"`
	FlowName     string        `env:"TASKPILOT_FLOW_NAME" envDefault:"Task Processing Flow"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present; its absence is not an
// error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if c.RetryCount < 0 {
		return nil, fmt.Errorf("TASKPILOT_RETRY_COUNT must be >= 0, got %d", c.RetryCount)
	}
	return &c, nil
}
