package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Task      TaskConfig      `mapstructure:"task"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	SessionSecret string `mapstructure:"session_secret"`
	SecureCookies bool   `mapstructure:"secure_cookies"`
	StaticDir     string `mapstructure:"static_dir"`
	// StartRateLimit is the number of runs a client may start per minute.
	StartRateLimit uint `mapstructure:"start_rate_limit"`
}

// DatabaseConfig holds database connection settings. Driver is "sqlite" or
// "postgres"; Path is only used by sqlite.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	LogLevel string `mapstructure:"log_level"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// TaskConfig points at the task protocol and the stimulus list.
type TaskConfig struct {
	ProtocolFile string `mapstructure:"protocol_file"`
	StimulusDir  string `mapstructure:"stimulus_dir"`
}

// RetentionConfig controls how long finished or abandoned runs are kept.
type RetentionConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxAge        time.Duration `mapstructure:"max_age"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.session_secret", "change-me-in-production")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.static_dir", "assets")
	v.SetDefault("server.start_rate_limit", 5)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "file:localglobal?mode=memory&cache=shared")
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "localglobal")
	v.SetDefault("database.log_level", "warn")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Task defaults
	v.SetDefault("task.protocol_file", "config/task.yaml")
	v.SetDefault("task.stimulus_dir", "config")

	// Retention defaults
	v.SetDefault("retention.sweep_interval", "10m")
	v.SetDefault("retention.max_age", "24h")
}

// Default returns the configuration built from defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	_ = v.Unmarshal(&c)
	return &c
}

// loadDotEnv loads .env.local and .env from projectRoot when they exist.
// Variables already set in the environment win.
func loadDotEnv(projectRoot string, log *zap.Logger) error {
	for _, name := range []string{".env.local", ".env"} {
		p := filepath.Join(projectRoot, name)
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		log.Info("Loaded environment file", zap.String("file", p))
	}
	return nil
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	if err := loadDotEnv(projectRoot, log); err != nil {
		return err
	}

	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("LGT") // e.g., LGT_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// It's okay if the file doesn't exist; defaults and env vars will be used.
	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		fileLoaded = false
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	Conf = &loaded

	// Only a file on disk can be watched for hot-reloading.
	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
			var reloaded Config
			if err := v.Unmarshal(&reloaded); err != nil {
				log.Error("Error reloading configuration", zap.Error(err))
				return
			}
			Conf = &reloaded
		})
	}

	log.Info("Configuration loaded successfully", zap.Bool("from_file", fileLoaded))
	return nil
}
