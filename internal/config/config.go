package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverS3       = "s3"
	DriverFS       = "fs"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"Server"`
	Database  DatabaseConfig  `mapstructure:"Database"`
	BlobStore BlobStoreConfig `mapstructure:"BlobStore"`
	Log       LogConfig       `mapstructure:"Log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"Port"`
	BaseURL         string        `mapstructure:"BaseURL"`
	ShutdownTimeout time.Duration `mapstructure:"ShutdownTimeout"`
	MaxUploadSize   int64         `mapstructure:"MaxUploadSize"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"Driver"`
	Host            string        `mapstructure:"Host"`
	Port            string        `mapstructure:"Port"`
	User            string        `mapstructure:"User"`
	Password        string        `mapstructure:"Password"`
	Name            string        `mapstructure:"Name"`
	SSLMode         string        `mapstructure:"SSLMode"`
	MaxOpenConns    int           `mapstructure:"MaxOpenConns"`
	MaxIdleConns    int           `mapstructure:"MaxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"ConnMaxLifetime"`
}

type BlobStoreConfig struct {
	Driver          string `mapstructure:"Driver"`
	Root            string `mapstructure:"Root"`
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
	Bucket          string `mapstructure:"Bucket"`
	Prefix          string `mapstructure:"Prefix"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	UsePathStyle    bool   `mapstructure:"UsePathStyle"`
}

type LogConfig struct {
	Level  string `mapstructure:"Level"`
	Pretty bool   `mapstructure:"Pretty"`
}

// envBindings связывает ключи конфигурации с переменными окружения
var envBindings = []struct {
	key string
	env string
}{
	{"Server.Port", "HTTP_PORT"},
	{"Server.BaseURL", "SERVER_BASE_URL"},
	{"Server.ShutdownTimeout", "SERVER_SHUTDOWN_TIMEOUT"},
	{"Server.MaxUploadSize", "SERVER_MAX_UPLOAD_SIZE"},
	{"Database.Driver", "DATABASE_DRIVER"},
	{"Database.Host", "DATABASE_HOST"},
	{"Database.Port", "DATABASE_PORT"},
	{"Database.User", "DATABASE_USER"},
	{"Database.Password", "DATABASE_PASSWORD"},
	{"Database.Name", "DATABASE_NAME"},
	{"Database.SSLMode", "DATABASE_SSLMODE"},
	{"Database.MaxOpenConns", "DATABASE_MAX_OPEN_CONNS"},
	{"Database.MaxIdleConns", "DATABASE_MAX_IDLE_CONNS"},
	{"Database.ConnMaxLifetime", "DATABASE_CONN_MAX_LIFETIME"},
	{"BlobStore.Driver", "BLOB_DRIVER"},
	{"BlobStore.Root", "BLOB_ROOT"},
	{"BlobStore.Endpoint", "S3_ENDPOINT"},
	{"BlobStore.Region", "S3_REGION"},
	{"BlobStore.Bucket", "S3_BUCKET"},
	{"BlobStore.Prefix", "S3_PREFIX"},
	{"BlobStore.AccessKeyID", "S3_ACCESS_KEY_ID"},
	{"BlobStore.SecretAccessKey", "S3_SECRET_ACCESS_KEY"},
	{"BlobStore.UsePathStyle", "S3_USE_PATH_STYLE"},
	{"Log.Level", "LOG_LEVEL"},
	{"Log.Pretty", "LOG_PRETTY"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "2525")
	v.SetDefault("Server.ShutdownTimeout", 30*time.Second)
	v.SetDefault("Server.MaxUploadSize", 100*1024*1024) // 100MB
	v.SetDefault("Database.Driver", DriverPostgres)
	v.SetDefault("Database.Port", "5432")
	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Database.MaxOpenConns", 25)
	v.SetDefault("Database.MaxIdleConns", 5)
	v.SetDefault("Database.ConnMaxLifetime", 5*time.Minute)
	v.SetDefault("BlobStore.Driver", DriverS3)
	v.SetDefault("BlobStore.Root", "./data")
	v.SetDefault("BlobStore.Region", "us-east-1")
	v.SetDefault("BlobStore.Prefix", "files")
	v.SetDefault("Log.Level", "info")
}

// NewConfig читает файл конфигурации (yaml или dotenv) и переменные окружения.
// Файл необязателен: без него используются только окружение и значения по умолчанию.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Привязываем переменные окружения
	for _, b := range envBindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", b.env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	// В dotenv-файле ключи плоские (DATABASE_HOST=...), переносим их в секции.
	// Переменная окружения важнее файла.
	for _, b := range envBindings {
		if _, ok := os.LookupEnv(b.env); ok {
			continue
		}
		if v.InConfig(b.env) {
			v.Set(b.key, v.Get(b.env))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	cfg.BlobStore.Driver = strings.ToLower(cfg.BlobStore.Driver)
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет, что все необходимые поля заполнены
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" ||
			c.Database.Port == "" ||
			c.Database.User == "" ||
			c.Database.Name == "" {
			return fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
				c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.BlobStore.Driver {
	case DriverFS:
		if c.BlobStore.Root == "" {
			return fmt.Errorf("blob store root is required for fs driver")
		}
	case DriverS3:
		if c.BlobStore.AccessKeyID == "" {
			return fmt.Errorf("AccessKeyID is required")
		}
		if c.BlobStore.SecretAccessKey == "" {
			return fmt.Errorf("SecretAccessKey is required")
		}
		if c.BlobStore.Bucket == "" {
			return fmt.Errorf("Bucket is required")
		}
	default:
		return fmt.Errorf("unknown blob store driver %q", c.BlobStore.Driver)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	if c.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// GetURL возвращает адрес базы в виде URL для golang-migrate
func (c *DatabaseConfig) GetURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
