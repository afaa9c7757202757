package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by Storage.Driver.
const (
	StorageMemory   = "memory"
	StorageBadger   = "badger"
	StoragePostgres = "postgres"
)

// Cache drivers accepted by Cache.Driver.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	App struct {
		Name string
		Env  string
	}

	Log struct {
		Level  string
		Pretty bool
	}

	API struct {
		Host string
		Port string
	}

	DB struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Cache struct {
		Driver string
	}

	Storage struct {
		Driver    string
		BadgerDir string
	}

	Device struct {
		ID                string
		Name              string
		DataCostSensitive bool
	}

	Webhook struct {
		URL string
		Key string
	}

	NATS struct {
		URL string
	}

	Send struct {
		Timeout   time.Duration
		RateLimit int
	}

	Scheduler struct {
		Interval     time.Duration
		BatchTimeout time.Duration
	}

	Worker struct {
		BatchSize         int
		MaxWorkers        int
		PerMessageTimeout time.Duration
		MaxAttempts       int
	}

	Broadcast struct {
		Workers int
	}

	Heartbeat struct {
		Enabled bool
	}

	Discovery struct {
		Enabled bool
		Port    int
	}

	Privacy struct {
		AnonymizeIDs  bool
		Key           string
		RetentionDays int
	}
}

var defaults = map[string]any{
	"APP_NAME": "xlink",
	"APP_ENV":  "development",

	"LOG_LEVEL":  "info",
	"LOG_PRETTY": true,

	"API_HOST": "0.0.0.0",
	"API_PORT": "8080",

	"DB_HOST":     "db",
	"DB_PORT":     5432,
	"DB_USER":     "root",
	"DB_PASSWORD": "123456",
	"DB_NAME":     "db_xlink",
	"DB_SSLMODE":  "disable",

	"REDIS_ADDR":     "redis:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"XLINK_CACHE":      CacheMemory,
	"XLINK_STORAGE":    StorageMemory,
	"XLINK_BADGER_DIR": "./data/xlink",

	"XLINK_DEVICE_ID":           "",
	"XLINK_DEVICE_NAME":         "xlink-device",
	"XLINK_DATA_COST_SENSITIVE": false,

	"XLINK_WEBHOOK_URL": "",
	"XLINK_WEBHOOK_KEY": "",
	"XLINK_NATS_URL":    "",

	"XLINK_SEND_TIMEOUT": 5 * time.Second,
	"XLINK_RATE_LIMIT":   100,

	"SCHEDULER_INTERVAL":      5 * time.Second,
	"SCHEDULER_BATCH_TIMEOUT": 30 * time.Second,

	"MESSAGE_BATCH_SIZE":          100,
	"MESSAGE_MAX_WORKERS":         4,
	"MESSAGE_PER_MESSAGE_TIMEOUT": 5 * time.Second,
	"MESSAGE_MAX_ATTEMPTS":        5,

	"XLINK_BROADCAST_WORKERS": 8,
	"XLINK_HEARTBEAT":         true,
	"XLINK_DISCOVERY":         false,
	"XLINK_DISCOVERY_PORT":    7788,

	"XLINK_ANONYMIZE_IDS":  true,
	"XLINK_ANONYMIZE_KEY":  "",
	"XLINK_RETENTION_DAYS": 30,
}

// New loads configuration from the process environment and a .env file.
// If XLINK_CONFIG names a YAML file it is read first and environment
// variables override it.
func New() *Config {
	_ = godotenv.Load()

	v := newViper()
	if path := strings.TrimSpace(os.Getenv("XLINK_CONFIG")); path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}
	return build(v)
}

// FromFile is like New but fails when the YAML file cannot be read.
func FromFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return build(v), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	return v
}

func build(v *viper.Viper) *Config {
	cfg := &Config{}

	// App
	cfg.App.Name = getString(v, "APP_NAME")
	cfg.App.Env = getString(v, "APP_ENV")
	cfg.Log.Level = getString(v, "LOG_LEVEL")
	cfg.Log.Pretty = v.GetBool("LOG_PRETTY")

	// API
	cfg.API.Host = getString(v, "API_HOST")
	cfg.API.Port = getString(v, "API_PORT")

	// DB
	cfg.DB.Host = getString(v, "DB_HOST")
	cfg.DB.Port = getInt(v, "DB_PORT")
	cfg.DB.User = getString(v, "DB_USER")
	cfg.DB.Password = getString(v, "DB_PASSWORD")
	cfg.DB.Name = getString(v, "DB_NAME")
	cfg.DB.SSLMode = getString(v, "DB_SSLMODE")

	// Redis
	cfg.Redis.Addr = getString(v, "REDIS_ADDR")
	cfg.Redis.Password = getString(v, "REDIS_PASSWORD")
	cfg.Redis.DB = getInt(v, "REDIS_DB")

	// Storage and cache backends
	cfg.Cache.Driver = strings.ToLower(getString(v, "XLINK_CACHE"))
	cfg.Storage.Driver = strings.ToLower(getString(v, "XLINK_STORAGE"))
	cfg.Storage.BadgerDir = getString(v, "XLINK_BADGER_DIR")

	// Local device
	cfg.Device.ID = getString(v, "XLINK_DEVICE_ID")
	cfg.Device.Name = getString(v, "XLINK_DEVICE_NAME")
	cfg.Device.DataCostSensitive = v.GetBool("XLINK_DATA_COST_SENSITIVE")

	// Channels
	cfg.Webhook.URL = getString(v, "XLINK_WEBHOOK_URL")
	cfg.Webhook.Key = getString(v, "XLINK_WEBHOOK_KEY")
	cfg.NATS.URL = getString(v, "XLINK_NATS_URL")

	// Sending
	cfg.Send.Timeout = getDuration(v, "XLINK_SEND_TIMEOUT")
	cfg.Send.RateLimit = getInt(v, "XLINK_RATE_LIMIT")

	// Pending redelivery
	cfg.Scheduler.Interval = getDuration(v, "SCHEDULER_INTERVAL")
	cfg.Scheduler.BatchTimeout = getDuration(v, "SCHEDULER_BATCH_TIMEOUT")
	cfg.Worker.BatchSize = getInt(v, "MESSAGE_BATCH_SIZE")
	cfg.Worker.MaxWorkers = getInt(v, "MESSAGE_MAX_WORKERS")
	cfg.Worker.PerMessageTimeout = getDuration(v, "MESSAGE_PER_MESSAGE_TIMEOUT")
	cfg.Worker.MaxAttempts = getInt(v, "MESSAGE_MAX_ATTEMPTS")

	cfg.Broadcast.Workers = getInt(v, "XLINK_BROADCAST_WORKERS")
	cfg.Heartbeat.Enabled = v.GetBool("XLINK_HEARTBEAT")
	cfg.Discovery.Enabled = v.GetBool("XLINK_DISCOVERY")
	cfg.Discovery.Port = getInt(v, "XLINK_DISCOVERY_PORT")

	// Privacy
	cfg.Privacy.AnonymizeIDs = v.GetBool("XLINK_ANONYMIZE_IDS")
	cfg.Privacy.Key = getString(v, "XLINK_ANONYMIZE_KEY")
	cfg.Privacy.RetentionDays = getInt(v, "XLINK_RETENTION_DAYS")

	return cfg
}

func getString(v *viper.Viper, key string) string {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		if d, ok := defaults[key].(string); ok {
			return d
		}
	}
	return s
}

// getInt falls back to the default when the value does not parse.
func getInt(v *viper.Viper, key string) int {
	def, _ := defaults[key].(int)
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return i
}

func getDuration(v *viper.Viper, key string) time.Duration {
	def, _ := defaults[key].(time.Duration)
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// Addr is the HTTP listen address of the gateway.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.API.Host, c.API.Port)
}
