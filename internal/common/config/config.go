// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig               `mapstructure:"app"`
	Server     ServerConfig            `mapstructure:"server"`
	Logging    LoggingConfig           `mapstructure:"logging"`
	Store      StoreConfig             `mapstructure:"store"`
	GenAI      GenAIConfig             `mapstructure:"genai"`
	Auth       AuthConfig              `mapstructure:"auth"`
	Archive    ArchiveConfig           `mapstructure:"archive"`
	Escalation EscalationConfig        `mapstructure:"escalation"`
	Camunda    CamundaConfig           `mapstructure:"camunda"`
	Workers    map[string]WorkerConfig `mapstructure:"workers"`
	Engine     EngineConfig            `mapstructure:"engine"`
	Catalog    CatalogConfig           `mapstructure:"catalog"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	RevealInterval  int    `mapstructure:"reveal_interval"`  // milliseconds between streamed chunks
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// StoreConfig selects the key-value backend for conversation state.
type StoreConfig struct {
	Backend    string         `mapstructure:"backend"`
	MaxHistory int            `mapstructure:"max_history"`
	TTL        int            `mapstructure:"ttl"` // seconds, redis only, 0 keeps forever
	Redis      RedisConfig    `mapstructure:"redis"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	Table          string `mapstructure:"table"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// GenAIConfig points at the hosted generation endpoint.
type GenAIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// AuthConfig holds the Keycloak settings used to resolve bearer tokens.
type AuthConfig struct {
	Keycloak struct {
		Enabled      bool   `mapstructure:"enabled"`
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		Timeout      int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"keycloak"`
}

type ArchiveConfig struct {
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
	URL       string   `mapstructure:"url"` // single URL alternative to addresses
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// EscalationConfig holds the human hand-off settings.
type EscalationConfig struct {
	BookingURL string `mapstructure:"booking_url"`
	SNS        struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// EngineConfig overrides the classifier and tracker thresholds. Zero values
// keep the built-in defaults.
type EngineConfig struct {
	ConfidenceFloor    float64 `mapstructure:"confidence_floor"`
	KeywordIncrement   float64 `mapstructure:"keyword_increment"`
	FlowBonus          float64 `mapstructure:"flow_bonus"`
	RepeatPenalty      float64 `mapstructure:"repeat_penalty"`
	RepeatPenaltyAfter int     `mapstructure:"repeat_penalty_after"`
	StuckThreshold     int     `mapstructure:"stuck_threshold"`
	MaxInputRunes      int     `mapstructure:"max_input_runes"`
	MaxTopics          int     `mapstructure:"max_topics"`
	DisclaimerBelow    float64 `mapstructure:"disclaimer_below"`
}

// CatalogConfig points at an optional intent keyword override file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}
