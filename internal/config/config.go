package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	GraphBackendPostgres = "postgres"
	GraphBackendNeo4j    = "neo4j"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Graph        GraphConfig
	JWT          JWTConfig
	Engine       EngineConfig
	Logging      LoggingConfig
	CORS         CORSConfig
	GeminiAPIKey string
}

type ServerConfig struct {
	Host         string
	Port         int
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Stream   string
}

// GraphConfig selects where handshakes are read from.
type GraphConfig struct {
	Backend       string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
}

type JWTConfig struct {
	AccessSecret string
}

// EngineConfig bounds the traversal and matching jobs.
type EngineConfig struct {
	HelpMaxDepth               int
	HelpMaxRecipients          int
	NotificationTTL            time.Duration
	ChainMaxNewPerRun          int
	ChainMaxCycles             int
	ClusterMinMembersExclusive int
}

type LoggingConfig struct {
	Level string
	Env   string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables or .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	// Try to read from .env file, but don't fail if it doesn't exist
	_ = v.ReadInConfig()

	config := fromViper(v)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("EVENTS_STREAM", "handshake:events")
	v.SetDefault("GRAPH_BACKEND", GraphBackendPostgres)
	v.SetDefault("NEO4J_DATABASE", "neo4j")
	v.SetDefault("HELP_MAX_DEPTH", 3)
	v.SetDefault("HELP_MAX_RECIPIENTS", 50)
	v.SetDefault("NOTIFICATION_TTL", "72h")
	v.SetDefault("CHAIN_MAX_NEW_PER_RUN", 3)
	v.SetDefault("CHAIN_MAX_CYCLES", 10000)
	v.SetDefault("CLUSTER_MIN_MEMBERS_EXCLUSIVE", 3)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Host:         v.GetString("SERVER_HOST"),
			Port:         v.GetInt("SERVER_PORT"),
			Env:          v.GetString("ENV"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSL_MODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Stream:   v.GetString("EVENTS_STREAM"),
		},
		Graph: GraphConfig{
			Backend:       strings.ToLower(strings.TrimSpace(v.GetString("GRAPH_BACKEND"))),
			Neo4jURI:      v.GetString("NEO4J_URI"),
			Neo4jUser:     v.GetString("NEO4J_USER"),
			Neo4jPassword: v.GetString("NEO4J_PASSWORD"),
			Neo4jDatabase: v.GetString("NEO4J_DATABASE"),
		},
		JWT: JWTConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Engine: EngineConfig{
			HelpMaxDepth:               v.GetInt("HELP_MAX_DEPTH"),
			HelpMaxRecipients:          v.GetInt("HELP_MAX_RECIPIENTS"),
			NotificationTTL:            v.GetDuration("NOTIFICATION_TTL"),
			ChainMaxNewPerRun:          v.GetInt("CHAIN_MAX_NEW_PER_RUN"),
			ChainMaxCycles:             v.GetInt("CHAIN_MAX_CYCLES"),
			ClusterMinMembersExclusive: v.GetInt("CLUSTER_MIN_MEMBERS_EXCLUSIVE"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Env:   v.GetString("ENV"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		GeminiAPIKey: v.GetString("GEMINI_API_KEY"),
	}
}

// Validate validates critical configuration values
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("JWT access secret is required")
	}
	if len(c.JWT.AccessSecret) < 32 {
		return fmt.Errorf("JWT access secret must be at least 32 characters")
	}
	switch c.Graph.Backend {
	case GraphBackendPostgres:
	case GraphBackendNeo4j:
		if c.Graph.Neo4jURI == "" {
			return fmt.Errorf("NEO4J_URI is required when GRAPH_BACKEND=neo4j")
		}
	default:
		return fmt.Errorf("unknown graph backend %q", c.Graph.Backend)
	}
	if c.Engine.HelpMaxDepth < 0 || c.Engine.HelpMaxRecipients < 0 {
		return fmt.Errorf("help request bounds must not be negative")
	}
	if c.Engine.NotificationTTL <= 0 {
		return fmt.Errorf("notification TTL must be positive")
	}
	if c.Engine.ChainMaxNewPerRun < 1 {
		return fmt.Errorf("CHAIN_MAX_NEW_PER_RUN must be at least 1")
	}
	if c.Engine.ClusterMinMembersExclusive < 0 {
		return fmt.Errorf("cluster threshold must not be negative")
	}
	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether a redis host was configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
