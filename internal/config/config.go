// Package config loads and validates gateway and scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names accepted by the provider switches.
const (
	ProviderEnv      = "env"
	ProviderAWS      = "aws"
	ProviderGCS      = "gcs"
	ProviderLocal    = "local"
	ProviderMemory   = "memory"
	ProviderPostgres = "postgres"
	ProviderSQLite   = "sqlite"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Secrets SecretsConfig `mapstructure:"secrets"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	CORS    CORSConfig    `mapstructure:"cors"`
}

// ServerConfig controls HTTP server behavior for both deployables.
type ServerConfig struct {
	Port                     int  `mapstructure:"port"`
	ScraperPort              int  `mapstructure:"scraper_port"`
	ExposeErrorDetails       bool `mapstructure:"expose_error_details"`
	ReadHeaderTimeoutSeconds int  `mapstructure:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int  `mapstructure:"shutdown_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SecretsConfig selects the vault backend and the secret names to resolve.
type SecretsConfig struct {
	Provider    string      `mapstructure:"provider"`
	EnvPrefix   string      `mapstructure:"env_prefix"`
	AWSRegion   string      `mapstructure:"aws_region"`
	AWSEndpoint string      `mapstructure:"aws_endpoint"`
	Names       SecretNames `mapstructure:"names"`
}

// SecretNames are the vault keys for each credential.
type SecretNames struct {
	StorageCredential string `mapstructure:"storage_credential"`
	AuditEndpoint     string `mapstructure:"audit_endpoint"`
	DatabasePassword  string `mapstructure:"database_password"`
}

// StorageConfig selects the consent blob backend.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	LocalDir string `mapstructure:"local_dir"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Provider               string `mapstructure:"provider"`
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Name                   string `mapstructure:"name"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
	SQLitePath             string `mapstructure:"sqlite_path"`
}

// AuditConfig bounds the outbound call to the audit function.
type AuditConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ScraperConfig controls how the scraper fetches pages.
type ScraperConfig struct {
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	UserAgent         string `mapstructure:"user_agent"`
	RenderJS          bool   `mapstructure:"render_js"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
}

// CORSConfig lists origins allowed to call the gateway from a browser.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COMPLIANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.scraper_port", 7071)
	v.SetDefault("server.expose_error_details", true)
	v.SetDefault("server.read_header_timeout_seconds", 5)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("logging.development", true)
	v.SetDefault("secrets.provider", ProviderEnv)
	v.SetDefault("secrets.env_prefix", "COMPLIANCE_SECRET_")
	v.SetDefault("secrets.names.storage_credential", "storage-credential")
	v.SetDefault("secrets.names.audit_endpoint", "audit-function-url")
	v.SetDefault("secrets.names.database_password", "database-password")
	v.SetDefault("storage.provider", ProviderMemory)
	v.SetDefault("storage.bucket", "consent-templates")
	v.SetDefault("storage.local_dir", "data/consent")
	v.SetDefault("db.provider", ProviderMemory)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "compliance")
	v.SetDefault("db.name", "compliance")
	v.SetDefault("db.sslmode", "require")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.sqlite_path", "data/compliance.db")
	v.SetDefault("audit.timeout_seconds", 10)
	v.SetDefault("scraper.timeout_seconds", 10)
	v.SetDefault("scraper.user_agent", "compliance-audit-bot/0.1")
	v.SetDefault("scraper.render_js", false)
	v.SetDefault("scraper.nav_timeout_seconds", 25)
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.ScraperPort <= 0 {
		return fmt.Errorf("server.scraper_port must be > 0")
	}
	switch c.Secrets.Provider {
	case ProviderEnv, ProviderAWS:
	default:
		return fmt.Errorf("secrets.provider must be one of env, aws; got %q", c.Secrets.Provider)
	}
	if c.Secrets.Names.AuditEndpoint == "" {
		return fmt.Errorf("secrets.names.audit_endpoint must be set")
	}
	switch c.Storage.Provider {
	case ProviderGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set when storage.provider is gcs")
		}
		if c.Secrets.Names.StorageCredential == "" {
			return fmt.Errorf("secrets.names.storage_credential must be set when storage.provider is gcs")
		}
	case ProviderLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set when storage.provider is local")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("storage.provider must be one of gcs, local, memory; got %q", c.Storage.Provider)
	}
	switch c.DB.Provider {
	case ProviderPostgres:
		if c.DB.Host == "" || c.DB.Name == "" || c.DB.User == "" {
			return fmt.Errorf("db.host, db.name and db.user must be set when db.provider is postgres")
		}
		if c.Secrets.Names.DatabasePassword == "" {
			return fmt.Errorf("secrets.names.database_password must be set when db.provider is postgres")
		}
	case ProviderSQLite:
		if c.DB.SQLitePath == "" {
			return fmt.Errorf("db.sqlite_path must be set when db.provider is sqlite")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("db.provider must be one of postgres, sqlite, memory; got %q", c.DB.Provider)
	}
	if c.Audit.TimeoutSeconds <= 0 {
		return fmt.Errorf("audit.timeout_seconds must be > 0")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	return nil
}

// AuditTimeout is the bound on the dispatcher's outbound call.
func (c Config) AuditTimeout() time.Duration {
	return time.Duration(c.Audit.TimeoutSeconds) * time.Second
}

// ScrapeTimeout is the bound on the scraper's page fetch.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// ReadHeaderTimeout bounds how long the server waits for request headers.
func (c Config) ReadHeaderTimeout() time.Duration {
	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Server.ReadHeaderTimeoutSeconds) * time.Second
}

// RequiredSecrets lists the vault names the selected backends need.
func (c Config) RequiredSecrets() []string {
	names := []string{c.Secrets.Names.AuditEndpoint}
	if c.Storage.Provider == ProviderGCS {
		names = append(names, c.Secrets.Names.StorageCredential)
	}
	if c.DB.Provider == ProviderPostgres {
		names = append(names, c.Secrets.Names.DatabasePassword)
	}
	return names
}
