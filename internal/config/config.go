package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Database DatabaseConfig `env:",prefix=DB_"`
	App      AppConfig      `env:",prefix=APP_"`
	AMQP     AMQPConfig     `env:",prefix=AMQP_"`
	SES      SESConfig      `env:",prefix=SES_"`
	CORS     CORSConfig     `env:",prefix=CORS_"`
}

type ServerConfig struct {
	Port            string `env:"PORT,default=8080"`
	Host            string `env:"HOST,default=0.0.0.0"`
	ReadTimeout     int    `env:"READ_TIMEOUT,default=30"`  // seconds
	WriteTimeout    int    `env:"WRITE_TIMEOUT,default=30"` // seconds
	ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT,default=30"`
}

type DatabaseConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=postgres"`
	Password string `env:"PASSWORD,default=postgres"`
	Name     string `env:"NAME,default=reengage"`
	SSLMode  string `env:"SSL_MODE,default=disable"`
	MaxConns int    `env:"MAX_CONNS,default=10"`
	MinConns int    `env:"MIN_CONNS,default=2"`
}

type AppConfig struct {
	Environment     string `env:"ENVIRONMENT,default=development"`
	LogLevel        string `env:"LOG_LEVEL,default=info"`
	// TrackingBaseURL is the public address of the API, used to build open
	// tracking links in outgoing mail. Empty disables the pixel.
	TrackingBaseURL string `env:"TRACKING_BASE_URL"`
}

// AMQPConfig configures the delivery queue. An empty URL means deliveries are
// only logged.
type AMQPConfig struct {
	URL   string `env:"URL"`
	Queue string `env:"QUEUE,default=campaign_deliveries"`
}

type SESConfig struct {
	Region    string `env:"REGION,default=us-east-1"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	FromEmail string `env:"FROM_EMAIL,default=hello@example.com"`
	FromName  string `env:"FROM_NAME,default=Home Decor"`
}

type CORSConfig struct {
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
}

// Load reads a .env file if present and then the process environment.
func Load(ctx context.Context) (*Config, error) {
	// A missing .env is fine: the OS environment is used as-is.
	_ = godotenv.Load()
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *SESConfig) Enabled() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// Origins splits the comma separated origin list.
func (c *CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
