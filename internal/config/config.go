// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer building a Config with defaults.
// - External errors are wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Timezone names the business timezone used for week boundaries and
	// lock deadlines, e.g. "Europe/Berlin". Empty means the host timezone.
	Timezone string `koanf:"timezone"`

	// BaseMinutes is the nominal weekly time budget.
	BaseMinutes int `koanf:"base_minutes"`

	// StoreBackend selects the goal store: memory, sqlite or postgres.
	StoreBackend string `koanf:"store_backend"`

	// SQLitePath locates the database file for the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// PostgresDSN configures the postgres backend.
	PostgresDSN string `koanf:"postgres_dsn"`

	// RosterPath points to the YAML roster file; empty disables role policy.
	RosterPath string `koanf:"roster_path"`

	// KafkaBrokers enables score event publishing when non-empty.
	KafkaBrokers []string `koanf:"kafka_brokers"`

	// KafkaTopic is the topic score events are written to.
	KafkaTopic string `koanf:"kafka_topic"`

	// PublishQueueSize bounds the in-memory score event queue.
	PublishQueueSize int `koanf:"publish_queue_size"`

	// PublishWorkers sets the number of publish workers.
	PublishWorkers int `koanf:"publish_workers"`

	// AuthSecret enables bearer-token auth when non-empty.
	AuthSecret string `koanf:"auth_secret"`

	// AuthIssuer is the expected token issuer when auth is enabled.
	AuthIssuer string `koanf:"auth_issuer"`

	// MaxLeaderboardUsers caps the user set of one leaderboard request.
	MaxLeaderboardUsers int `koanf:"max_leaderboard_users"`

	// Score formula tunables.
	Alpha             float64 `koanf:"alpha"`
	Beta              float64 `koanf:"beta"`
	BonusMax          float64 `koanf:"bonus_max"`
	Kappa             float64 `koanf:"kappa"`
	Lambda            float64 `koanf:"lambda"`
	Mu                float64 `koanf:"mu"`
	ScoreCap          float64 `koanf:"score_cap"`
	IncompletePenalty float64 `koanf:"incomplete_penalty"`
}

// New creates a Config holding the production defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":8080",
		Timezone:            "",
		BaseMinutes:         2700,
		StoreBackend:        "memory",
		SQLitePath:          "planly.db",
		KafkaTopic:          "planly.scores",
		PublishQueueSize:    10_000,
		PublishWorkers:      2,
		MaxLeaderboardUsers: 200,
		Alpha:               0.10,
		Beta:                0.25,
		BonusMax:            0.20,
		Kappa:               0.50,
		Lambda:              0.75,
		Mu:                  2.5,
		ScoreCap:            1.30,
		IncompletePenalty:   0.10,
	}
}
