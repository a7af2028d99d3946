package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// GoogleDiscoveryURL is the default provider discovery document
const GoogleDiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Session  SessionConfig  `yaml:"session"`
	Printers PrinterConfig  `yaml:"printers"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Driver selects the identity store backend: "postgres" or "memory"
	Driver   string         `yaml:"driver"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// OAuthConfig holds the identity provider client configuration
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	DiscoveryURL string `yaml:"discovery_url"`
	CallbackURL  string `yaml:"callback_url"`
}

// SessionConfig holds session signing configuration
type SessionConfig struct {
	Secret string `yaml:"secret"` // base64-encoded 32-byte key
}

// PrinterConfig names the printers shown on the status page
type PrinterConfig struct {
	Names []string `yaml:"names"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// ConnectionString returns the PostgreSQL connection string
func (p *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// DefaultConfigPaths defines the default locations to search for the
// configuration file
var DefaultConfigPaths = []string{
	"./config.yaml",
	"./config.yml",
	"./configs/printdesk.yaml",
	"/etc/printdesk/config.yaml",
}

// Load loads configuration from the specified file or default locations.
// Missing provider credentials or session secret fail here rather than on
// the first login attempt.
func Load(configPath string) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "printdesk",
				User:     "postgres",
				SSLMode:  "disable",
			},
		},
		OAuth: OAuthConfig{
			DiscoveryURL: GoogleDiscoveryURL,
			CallbackURL:  "http://localhost:8080/login/callback",
		},
		Printers: PrinterConfig{
			Names: []string{"Xerox", "Gutenberg"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" && fileExists(configPath) {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand ${VAR} references so secrets can live in the environment
		data = []byte(os.ExpandEnv(string(data)))

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment variables take precedence over file values
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		config.OAuth.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		config.OAuth.ClientSecret = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		config.Session.Secret = v
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// findConfigFile searches for a configuration file in default locations
func findConfigFile() string {
	for _, path := range DefaultConfigPaths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// validate fails fast on configuration the portal cannot run without
func validate(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if config.OAuth.ClientID == "" {
		return fmt.Errorf("oauth.client_id is required")
	}
	if config.OAuth.ClientSecret == "" {
		return fmt.Errorf("oauth.client_secret is required")
	}
	if config.OAuth.DiscoveryURL == "" {
		return fmt.Errorf("oauth.discovery_url is required")
	}
	if config.OAuth.CallbackURL == "" {
		return fmt.Errorf("oauth.callback_url is required")
	}
	if config.Session.Secret == "" {
		return fmt.Errorf("session.secret is required")
	}
	if config.Database.Driver != "postgres" && config.Database.Driver != "memory" {
		return fmt.Errorf("database.driver must be postgres or memory")
	}
	return nil
}
