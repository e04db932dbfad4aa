package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

// Config is the process configuration, read once at startup from MARINDA_*
// environment variables.
type Config struct {
	Port      string `env:"MARINDA_PORT"       envDefault:"8080"`
	DBPath    string `env:"MARINDA_DB_PATH"    envDefault:"marinda.db"`
	LogLevel  string `env:"MARINDA_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"MARINDA_LOG_FORMAT" envDefault:"text"`

	JWTSecret string        `env:"MARINDA_JWT_SECRET,required"`
	JWTIssuer string        `env:"MARINDA_JWT_ISSUER" envDefault:"marinda"`
	TokenTTL  time.Duration `env:"MARINDA_TOKEN_TTL"  envDefault:"720h"`

	// Cron specs (robfig/cron syntax, descriptors like "@every 1m" allowed).
	SweepSchedule     string `env:"MARINDA_SWEEP_SCHEDULE"     envDefault:"@every 1m"`
	ReconcileSchedule string `env:"MARINDA_RECONCILE_SCHEDULE" envDefault:"@hourly"`

	// PINAttempts is the number of PIN checks a member may fail per PINWindow.
	PINAttempts int           `env:"MARINDA_PIN_ATTEMPTS" envDefault:"5"`
	PINWindow   time.Duration `env:"MARINDA_PIN_WINDOW"   envDefault:"5m"`

	RedisURL     string `env:"MARINDA_REDIS_URL"`
	RedisChannel string `env:"MARINDA_REDIS_CHANNEL" envDefault:"marinda:events"`

	VAPIDPublicKey  string `env:"MARINDA_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"MARINDA_VAPID_PRIVATE_KEY"`
	VAPIDSubscriber string `env:"MARINDA_VAPID_SUBSCRIBER" envDefault:"mailto:noreply@marinda.app"`

	OTLPEndpoint string `env:"MARINDA_OTEL_ENDPOINT"`
	ServiceName  string `env:"MARINDA_SERVICE_NAME" envDefault:"marinda"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables instead of the
// process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("MARINDA_JWT_SECRET must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("MARINDA_TOKEN_TTL must be positive")
	}
	if c.PINAttempts < 1 {
		return fmt.Errorf("MARINDA_PIN_ATTEMPTS must be at least 1")
	}
	for name, spec := range map[string]string{
		"MARINDA_SWEEP_SCHEDULE":     c.SweepSchedule,
		"MARINDA_RECONCILE_SCHEDULE": c.ReconcileSchedule,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return fmt.Errorf("MARINDA_VAPID_PUBLIC_KEY and MARINDA_VAPID_PRIVATE_KEY must be set together")
	}
	return nil
}

// PushEnabled reports whether VAPID keys are configured.
func (c Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}
