package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Relay    RelayConfig    `mapstructure:"relay"`
}

type TelegramConfig struct {
	Token         string  `mapstructure:"token"`
	GroupID       int64   `mapstructure:"group_id"`
	AdminIDs      []int64 `mapstructure:"admin_ids"`
	BaseURL       string  `mapstructure:"base_url"`
	WebhookSecret string  `mapstructure:"webhook_secret"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type RelayConfig struct {
	TitleMaxLength  int           `mapstructure:"title_max_length"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
	RetryMultiplier float64       `mapstructure:"retry_multiplier"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func parseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("relay.title_max_length", 128)
	v.SetDefault("relay.max_retries", 3)
	v.SetDefault("relay.retry_base_delay", "2s")
	v.SetDefault("relay.retry_multiplier", 1.5)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file when present; environment-only deployments are
	// allowed.
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("BOT_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if groupID := v.GetInt64("GROUP_ID"); groupID != 0 {
		config.Telegram.GroupID = groupID
	}

	if adminIDs := v.GetString("ADMIN_IDS"); adminIDs != "" {
		ids, err := parseAdminIDs(adminIDs)
		if err != nil {
			return nil, err
		}
		config.Telegram.AdminIDs = ids
	}

	if baseURL := v.GetString("APP_BASE_URL"); baseURL != "" {
		config.Telegram.BaseURL = baseURL
	}

	if secret := v.GetString("WEBHOOK_SECRET"); secret != "" {
		config.Telegram.WebhookSecret = secret
	}

	if config.Telegram.Token == "" || config.Telegram.GroupID == 0 {
		return nil, fmt.Errorf("telegram token and group id must be provided")
	}

	return &config, nil
}
