package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "GATEHOUSE"

const (
	DoorBackendMemory = "memory"
	DoorBackendRedis  = "redis"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC health listener

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/gatehouse.db"

	Notify  NotifyConfig
	Door    DoorConfig
	Session SessionConfig
	Log     LogConfig

	RedisURL string

	// Operators holds "username:bcrypt-hash" entries allowed to read the log.
	Operators []string

	// Audit retention
	AuditRetentionDays int // 0 = keep forever
	PruneIntervalHours int // how often the pruner runs (default 6)
}

type NotifyConfig struct {
	WebhookURL string
	Timeout    time.Duration
	QueueSize  int
	Workers    int
}

type DoorConfig struct {
	Secret  string
	Expiry  time.Duration
	Backend string
}

type SessionConfig struct {
	Key string
	TTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

var defaults = map[string]any{
	"http.addr":                  ":8080",
	"grpc.addr":                  "",
	"env":                        "dev",
	"db.path":                    "./data/gatehouse.db",
	"notify.webhook_url":         "",
	"notify.timeout":             "5s",
	"notify.queue_size":          64,
	"notify.workers":             2,
	"door.secret":                "",
	"door.expiry":                "10s",
	"door.backend":               DoorBackendMemory,
	"redis.url":                  "",
	"session.key":                "",
	"session.ttl":                "12h",
	"operators":                  "",
	"log.level":                  "info",
	"log.format":                 "json",
	"audit.retention_days":       0,
	"audit.prune_interval_hours": 6,
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"http-addr":  "http.addr",
	"grpc-addr":  "grpc.addr",
	"db-path":    "db.path",
	"env":        "env",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// Load resolves configuration from defaults, an optional YAML file, the
// environment (GATEHOUSE_ prefix, dots become underscores) and flags, with
// later sources winning. An explicit path must exist; without one a
// gatehouse.yaml in the working directory is read if present.
func Load(flags *pflag.FlagSet, path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gatehouse")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	env := strings.ToLower(strings.TrimSpace(v.GetString("env")))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	cfg := Config{
		HTTPAddr: v.GetString("http.addr"),
		GRPCAddr: v.GetString("grpc.addr"),
		Env:      env,
		DBPath:   v.GetString("db.path"),

		Notify: NotifyConfig{
			WebhookURL: strings.TrimSpace(v.GetString("notify.webhook_url")),
			Timeout:    getDuration(v, "notify.timeout"),
			QueueSize:  getInt(v, "notify.queue_size"),
			Workers:    getInt(v, "notify.workers"),
		},
		Door: DoorConfig{
			Secret:  v.GetString("door.secret"),
			Expiry:  getDuration(v, "door.expiry"),
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("door.backend"))),
		},
		Session: SessionConfig{
			Key: v.GetString("session.key"),
			TTL: getDuration(v, "session.ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},

		RedisURL:  strings.TrimSpace(v.GetString("redis.url")),
		Operators: splitCSV(v.GetString("operators")),

		AuditRetentionDays: getInt(v, "audit.retention_days"),
		PruneIntervalHours: getInt(v, "audit.prune_interval_hours"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Door.Backend {
	case DoorBackendMemory:
	case DoorBackendRedis:
		if c.RedisURL == "" {
			return errors.New("door.backend=redis requires redis.url")
		}
	default:
		return fmt.Errorf("door.backend %q: want %s or %s", c.Door.Backend, DoorBackendMemory, DoorBackendRedis)
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// getInt falls back to the default when the value is unparsable or negative.
func getInt(v *viper.Viper, key string) int {
	n, err := cast.ToIntE(v.Get(key))
	if err != nil || n < 0 {
		return cast.ToInt(defaults[key])
	}
	return n
}

// getDuration falls back to the default when the value is unparsable or
// not positive.
func getDuration(v *viper.Viper, key string) time.Duration {
	d, err := cast.ToDurationE(v.Get(key))
	if err != nil || d <= 0 {
		return cast.ToDuration(defaults[key])
	}
	return d
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
