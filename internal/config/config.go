package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Sentinel values shipped in the sample config. Any id starting with "SET_" is treated as unset.
const (
	UnsetTicketCategory    = "SET_TICKET_CATEGORY_ID"
	UnsetOrderCategory     = "SET_ORDER_CATEGORY_ID"
	UnsetTranscriptChannel = "SET_TRANSCRIPT_CHANNEL_ID"
	UnsetRulesRole         = "SET_RULES_ROLE_ID"
	UnsetLogsChannel       = "SET_LOG_CHANNEL_ID"
	UnsetTempVoiceChannel  = "SET_TEMP_VOICE_CHANNEL_ID"
	UnsetGoodbyeChannel    = "SET_GOODBYE_CHANNEL_ID"

	sentinelPrefix = "SET_"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Discord  DiscordConfig
	Channels ChannelsConfig
	Roles    RolesConfig
	Orders   OrdersConfig
	Tickets  TicketsConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Messages MessagesConfig
	Rules    []string
}

// AppConfig controls process level behavior and the ops HTTP server.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// DiscordConfig holds the bot credentials.
type DiscordConfig struct {
	Token   string
	GuildID string
}

// ChannelsConfig holds the channel and category ids the handlers depend on.
type ChannelsConfig struct {
	TicketCategory string `yaml:"ticketCategory"`
	OrderCategory  string `yaml:"orderCategory"`
	Transcript     string `yaml:"transcript"`
	Logs           string `yaml:"logs"`
	TempVoice      string `yaml:"tempVoice"`
	Goodbye        string `yaml:"goodbye"`
}

// RolesConfig holds role ids.
type RolesConfig struct {
	RulesAccepted string `yaml:"rulesAccepted"`
}

// OrdersConfig configures the external order-lookup API.
type OrdersConfig struct {
	BaseURL               string
	HealthURL             string
	TimeoutSeconds        int
	HealthIntervalMinutes int
	CacheTTLSeconds       int
}

// TicketsConfig controls ticket lifecycle timing.
type TicketsConfig struct {
	CloseDelaySeconds int
}

// StorageConfig locates the JSON documents.
type StorageConfig struct {
	DataDir string
}

// PostgresConfig holds the optional audit archive connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds the optional order cache connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string
	Env     string
	Service string
	Format  string
}

// MessagesConfig holds user-facing texts that vary per community.
type MessagesConfig struct {
	ServerName   string `yaml:"serverName"`
	JoinMessage  string `yaml:"joinMessage"`
	LeaveMessage string `yaml:"leaveMessage"`
	RulesTitle   string `yaml:"rulesTitle"`
	RulesFooter  string `yaml:"rulesFooter"`
}

// fileConfig is the optional YAML layer.
type fileConfig struct {
	Channels ChannelsConfig `yaml:"channels"`
	Roles    RolesConfig    `yaml:"roles"`
	API      struct {
		OrderEndpoint string `yaml:"orderEndpoint"`
		HealthURL     string `yaml:"healthEndpoint"`
	} `yaml:"api"`
	Messages MessagesConfig `yaml:"messages"`
	Rules    []string       `yaml:"rules"`
}

// Load reads configuration from .env, an optional YAML file and environment variables.
// Environment variables win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	file, err := readFile(getEnv("BOT_CONFIG_FILE", "config.yaml"))
	if err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	orderBase := strings.TrimRight(getEnv("ORDER_API_URL", file.API.OrderEndpoint), "/")
	healthURL := getEnv("ORDER_HEALTH_URL", file.API.HealthURL)
	if healthURL == "" && orderBase != "" {
		healthURL = orderBase + "/health"
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "community-bot"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("OPS_HOST", "127.0.0.1"),
			Port:    getEnv("OPS_PORT", "8081"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Discord: DiscordConfig{
			Token:   os.Getenv("DISCORD_TOKEN"),
			GuildID: os.Getenv("DISCORD_GUILD_ID"),
		},
		Channels: ChannelsConfig{
			TicketCategory: getEnv("TICKET_CATEGORY_ID", withDefault(file.Channels.TicketCategory, UnsetTicketCategory)),
			OrderCategory:  getEnv("ORDER_CATEGORY_ID", withDefault(file.Channels.OrderCategory, UnsetOrderCategory)),
			Transcript:     getEnv("TRANSCRIPT_CHANNEL_ID", withDefault(file.Channels.Transcript, UnsetTranscriptChannel)),
			Logs:           getEnv("LOGS_CHANNEL_ID", withDefault(file.Channels.Logs, UnsetLogsChannel)),
			TempVoice:      getEnv("TEMP_VOICE_CHANNEL_ID", withDefault(file.Channels.TempVoice, UnsetTempVoiceChannel)),
			Goodbye:        getEnv("GOODBYE_CHANNEL_ID", withDefault(file.Channels.Goodbye, UnsetGoodbyeChannel)),
		},
		Roles: RolesConfig{
			RulesAccepted: getEnv("RULES_ROLE_ID", withDefault(file.Roles.RulesAccepted, UnsetRulesRole)),
		},
		Orders: OrdersConfig{
			BaseURL:               orderBase,
			HealthURL:             healthURL,
			TimeoutSeconds:        getEnvAsInt("ORDER_API_TIMEOUT_SECONDS", 10),
			HealthIntervalMinutes: getEnvAsInt("ORDER_HEALTH_INTERVAL_MINUTES", 5),
			CacheTTLSeconds:       getEnvAsInt("ORDER_CACHE_TTL_SECONDS", 60),
		},
		Tickets: TicketsConfig{
			CloseDelaySeconds: getEnvAsInt("TICKET_CLOSE_DELAY_SECONDS", 5),
		},
		Storage: StorageConfig{
			DataDir: getEnv("DATA_DIR", "./data"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Env:     getEnv("APP_ENV", "development"),
			Service: getEnv("APP_NAME", "community-bot"),
			Format:  os.Getenv("LOG_FORMAT"),
		},
		Messages: MessagesConfig{
			ServerName:   withDefault(file.Messages.ServerName, "Maj Studio"),
			JoinMessage:  withDefault(file.Messages.JoinMessage, "Welcome to the server!"),
			LeaveMessage: withDefault(file.Messages.LeaveMessage, "Goodbye, we hope to see you again!"),
			RulesTitle:   withDefault(file.Messages.RulesTitle, "📜 Server Rules"),
			RulesFooter:  withDefault(file.Messages.RulesFooter, "Click the button below to accept the rules"),
		},
		Rules: file.Rules,
	}

	return cfg, nil
}

// IsSet reports whether a configured id holds a real value rather than empty or a sentinel.
func IsSet(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && !strings.HasPrefix(id, sentinelPrefix)
}

// Addr returns the ops HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// Enabled reports whether the ops HTTP server should start.
func (a AppConfig) Enabled() bool {
	return a.Port != "" && a.Port != "0"
}

// Timeout returns the per-request timeout for the order API.
func (o OrdersConfig) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// HealthInterval returns the polling interval of the API health monitor.
func (o OrdersConfig) HealthInterval() time.Duration {
	if o.HealthIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(o.HealthIntervalMinutes) * time.Minute
}

// CacheTTL returns how long order lookups stay cached. Zero disables the cache.
func (o OrdersConfig) CacheTTL() time.Duration {
	if o.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(o.CacheTTLSeconds) * time.Second
}

// CloseDelay returns the grace delay between the closing notice and channel deletion.
func (t TicketsConfig) CloseDelay() time.Duration {
	if t.CloseDelaySeconds < 0 {
		return 0
	}
	return time.Duration(t.CloseDelaySeconds) * time.Second
}

func readFile(path string) (fileConfig, error) {
	var file fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return file, nil
		}
		return file, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse %s: %w", path, err)
	}
	return file, nil
}

func withDefault(val, fallback string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
