package config // package config loads application configuration from the environment

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration values. Each field maps to an
// environment variable of the same name in upper case.
type Config struct {
	Env         string        `mapstructure:"APP_ENV"`      // dev | prod
	Port        string        `mapstructure:"APP_PORT"`     // HTTP port to listen on
	DatabaseURL string        `mapstructure:"DATABASE_URL"` // MySQL DSN, user:pass@tcp(host:3306)/db
	JWTSecret   string        `mapstructure:"JWT_SECRET"`   // HMAC secret for admin tokens
	BcryptCost  int           `mapstructure:"BCRYPT_COST"`
	DBTimeout   time.Duration `mapstructure:"DB_TIMEOUT"` // bound on every store call
	RabbitURL   string        `mapstructure:"RABBITMQ_URL"`
	HotelName   string        `mapstructure:"HOTEL_NAME"` // printed on invoices

	Storage StorageConfig `mapstructure:",squash"`
}

// StorageConfig selects where uploaded files (profile images, guest ID
// documents) are written.
type StorageConfig struct {
	Driver      string `mapstructure:"STORAGE_DRIVER"` // local | s3
	UploadDir   string `mapstructure:"UPLOAD_DIR"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3Region    string `mapstructure:"S3_REGION"`
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"S3_SECRET_KEY"`
}

// required lists variables that have no usable default.
var required = []string{"DATABASE_URL", "JWT_SECRET"}

// Load reads an optional .env file, then the environment. Missing required
// variables stop the process, as there is nothing useful to run without them.
func Load() Config {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg, err := load(viper.New())
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	return cfg
}

// load does the work of Load against the given viper instance and reports
// problems as errors instead of exiting.
func load(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	for _, key := range required {
		if err := must(v, key); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	// AutomaticEnv only answers Get for keys viper already knows about,
	// so bind every mapped key before unmarshalling.
	for _, key := range []string{
		"APP_ENV", "APP_PORT", "DATABASE_URL", "JWT_SECRET", "BCRYPT_COST", "DB_TIMEOUT", "RABBITMQ_URL", "HOTEL_NAME",
		"STORAGE_DRIVER", "UPLOAD_DIR", "S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY",
	} {
		_ = v.BindEnv(key)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "s3" && cfg.Storage.S3Bucket == "" {
		return Config{}, fmt.Errorf("missing required env var: S3_BUCKET (STORAGE_DRIVER=s3)")
	}
	if cfg.BcryptCost < 4 {
		return Config{}, fmt.Errorf("invalid BCRYPT_COST: %d", cfg.BcryptCost)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_PORT", "4005")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("DB_TIMEOUT", 5*time.Second)
	v.SetDefault("HOTEL_NAME", "Hotel")
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("S3_REGION", "auto")
}

// must reports a required variable that is unset or blank.
func must(v *viper.Viper, key string) error {
	if strings.TrimSpace(v.GetString(key)) == "" {
		return fmt.Errorf("missing required env var: %s", key)
	}
	return nil
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool { return c.Env == "" || c.Env == "dev" || c.Env == "development" }
