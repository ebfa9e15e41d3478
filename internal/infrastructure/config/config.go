package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config is built once at startup and passed by reference into the components
// that need it. Domain logic never reads the environment directly.
type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`

	// ServiceAPIKeys is the set of shared secrets accepted on webhook and
	// external routes. The first entry is also sent as X-Service-Key on
	// outbound forwarding. Comma-separated; older keys stay in the list
	// until every agency has rotated.
	ServiceAPIKeys []string `env:"SERVICE_API_KEYS"`
	// HygieneImportAPIKey authenticates the secondary hygiene import endpoint.
	HygieneImportAPIKey string `env:"HYGIENE_IMPORT_API_KEY"`

	FrontendURL string `env:"FRONTEND_URL, default=http://localhost:3000"`
	UploadDir   string `env:"UPLOAD_DIR,   default=./uploads"`

	Mongo      MongoConfig
	Redis      RedisConfig
	Agencies   AgencyConfig
	Cloudinary CloudinaryConfig
	SMTP       SMTPConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=bolle"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// AgencyConfig carries the base URLs used when seeding the agency catalog.
type AgencyConfig struct {
	HygieneURL     string `env:"HYGIENE_SERVICE_URL,     default=http://localhost:3008"`
	PoliceURL      string `env:"POLICE_SERVICE_URL,      default=http://localhost:3010"`
	DouaneURL      string `env:"DOUANE_SERVICE_URL,      default=http://localhost:3011"`
	GendarmerieURL string `env:"GENDARMERIE_SERVICE_URL, default=http://localhost:3012"`
}

type CloudinaryConfig struct {
	CloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	APIKey    string `env:"CLOUDINARY_API_KEY"`
	APISecret string `env:"CLOUDINARY_API_SECRET"`
}

// SMTPConfig configures outbound mail. When Host is empty the mailer runs in
// simulated mode and only logs the message.
type SMTPConfig struct {
	Host string `env:"EMAIL_HOST"`
	Port int    `env:"EMAIL_PORT, default=587"`
	User string `env:"EMAIL_USER"`
	Pass string `env:"EMAIL_PASS"`
	From string `env:"EMAIL_FROM, default=no-reply@bolle.sn"`
}

// IsProduction gates routes that must not be reachable in production,
// such as the service catalog initializer.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// PrimaryServiceKey is the key presented on outbound calls to agencies.
func (c *Config) PrimaryServiceKey() string {
	if len(c.ServiceAPIKeys) == 0 {
		return ""
	}
	return c.ServiceAPIKeys[0]
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
