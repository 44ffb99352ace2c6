package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/aussiebroadwan/propinvite/internal/invites/service"
	"github.com/aussiebroadwan/propinvite/pkg/cryptox"
)

type Config struct {
	Env                  string        `env:"ENV" env-default:"dev" env-description:"Environment (dev, staging, prod)"`
	LogLevel             string        `env:"LOG_LEVEL" env-default:"info" env-description:"Log level (debug, info, warn, error)"`
	LogFormat            string        `env:"LOG_FORMAT" env-default:"json" env-description:"Log format (json, text)"`
	Port                 int           `env:"PORT" env-default:"8080" env-description:"HTTP server port"`
	TrustProxy           bool          `env:"TRUST_PROXY" env-default:"false" env-description:"Take the client address from X-Forwarded-For"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s" env-description:"Graceful shutdown timeout"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" env-default:"5m" env-description:"Interval between housekeeping sweeps"`

	DatabaseFile string `env:"INVITES_DATABASE_FILE" env-default:"invites.db" env-description:"Path to the SQLite database file"`
	PepperFile   string `env:"INVITES_PEPPER_FILE" env-default:"pepper" env-description:"Path to the token fingerprint pepper, created when missing"`
	SeedFile     string `env:"INVITES_SEED_FILE" env-description:"Optional YAML of profiles and properties loaded at startup"`

	JWTSecret string `env:"INVITES_JWT_SECRET" env-required:"true" env-description:"HS256 secret shared with the auth backend"`
	JWTIssuer string `env:"INVITES_JWT_ISSUER" env-description:"Expected iss claim; empty accepts any issuer"`

	TokenAlphabet  string        `env:"INVITES_TOKEN_ALPHABET" env-description:"Invite token alphabet (default: unambiguous base57)"`
	TokenLength    int           `env:"INVITES_TOKEN_LENGTH" env-default:"16" env-description:"Invite token length"`
	DefaultTTL     time.Duration `env:"INVITES_DEFAULT_TTL" env-default:"168h" env-description:"Invite lifetime when the issuer gives none"`
	MaxTTL         time.Duration `env:"INVITES_MAX_TTL" env-default:"720h" env-description:"Longest invite lifetime an issuer may request"`
	DefaultMaxUses int           `env:"INVITES_DEFAULT_MAX_USES" env-default:"1" env-description:"Invite capacity when the issuer gives none"`
	MaxUsesLimit   int           `env:"INVITES_MAX_USES_LIMIT" env-default:"50" env-description:"Largest capacity an issuer may request"`
	StoreTimeout   time.Duration `env:"INVITES_STORE_TIMEOUT" env-default:"2s" env-description:"Timeout for each datastore attempt"`
	FailureFloor   time.Duration `env:"INVITES_FAILURE_FLOOR" env-default:"30ms" env-description:"Minimum duration of a failed anonymous validate"`

	AbuseLimit          int           `env:"INVITES_ABUSE_LIMIT" env-default:"10" env-description:"Attempts per source within the abuse window"`
	AbuseWindow         time.Duration `env:"INVITES_ABUSE_WINDOW" env-default:"1m" env-description:"Abuse guard sliding window"`
	AbuseBackoffBase    time.Duration `env:"INVITES_ABUSE_BACKOFF_BASE" env-default:"30s" env-description:"Block after the first violation"`
	AbuseBackoffCeiling time.Duration `env:"INVITES_ABUSE_BACKOFF_CEILING" env-default:"15m" env-description:"Longest block after repeated violations"`

	FlagCacheTTL      time.Duration `env:"INVITES_FLAG_CACHE_TTL" env-default:"5s" env-description:"How long a rollout percent is cached"`
	RolloutFeature    string        `env:"INVITES_ROLLOUT_FEATURE" env-default:"property_invites_v2" env-description:"Feature flag gating the invite endpoints"`
	RolloutMode       string        `env:"INVITES_ROLLOUT_MODE" env-default:"advisory" env-description:"advisory logs recommendations, auto applies them"`
	RolloutSchedule   string        `env:"INVITES_ROLLOUT_SCHEDULE" env-default:"@every 5m" env-description:"Cron spec for rollout evaluations"`
	RolloutPolicyFile string        `env:"INVITES_ROLLOUT_POLICY_FILE" env-description:"Optional YAML rollout stage policy"`
	LegacyURL         string        `env:"INVITES_LEGACY_URL" env-description:"Legacy invite backend for callers outside the rollout"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.TokenAlphabet == "" {
		cfg.TokenAlphabet = cryptox.DefaultTokenAlphabet
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would only fail later at runtime. Token
// strength is checked when the codec is built.
func (c Config) Validate() error {
	var errs []error

	switch service.RolloutMode(c.RolloutMode) {
	case service.RolloutAdvisory, service.RolloutAuto:
	default:
		errs = append(errs, fmt.Errorf("INVITES_ROLLOUT_MODE must be advisory or auto, got %q", c.RolloutMode))
	}
	if c.RolloutFeature == "" {
		errs = append(errs, errors.New("INVITES_ROLLOUT_FEATURE must not be empty"))
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("INVITES_JWT_SECRET must be at least 32 bytes"))
	}
	if c.DefaultTTL <= 0 || c.DefaultTTL > c.MaxTTL {
		errs = append(errs, fmt.Errorf("INVITES_DEFAULT_TTL %s must be positive and at most INVITES_MAX_TTL %s", c.DefaultTTL, c.MaxTTL))
	}
	if c.DefaultMaxUses < 1 || c.DefaultMaxUses > c.MaxUsesLimit {
		errs = append(errs, fmt.Errorf("INVITES_DEFAULT_MAX_USES %d must be within 1..%d", c.DefaultMaxUses, c.MaxUsesLimit))
	}
	if c.LegacyURL != "" {
		if u, err := url.Parse(c.LegacyURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("INVITES_LEGACY_URL %q is not an absolute URL", c.LegacyURL))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// IssuePolicy returns the issuer bounds from the configuration.
func (c Config) IssuePolicy() service.IssuePolicy {
	return service.IssuePolicy{
		DefaultTTL:     c.DefaultTTL,
		MaxTTL:         c.MaxTTL,
		DefaultMaxUses: c.DefaultMaxUses,
		MaxUsesLimit:   c.MaxUsesLimit,
	}
}

func (c Config) AbusePolicy() service.AbusePolicy {
	return service.AbusePolicy{
		Limit:          c.AbuseLimit,
		Window:         c.AbuseWindow,
		BackoffBase:    c.AbuseBackoffBase,
		BackoffCeiling: c.AbuseBackoffCeiling,
	}
}

func (c Config) RetryPolicy() service.RetryPolicy {
	p := service.DefaultRetryPolicy()
	if c.StoreTimeout > 0 {
		p.Timeout = c.StoreTimeout
	}
	return p
}

// ConfigHelp lists every environment variable with its default.
func ConfigHelp() string {
	desc, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return desc
}
