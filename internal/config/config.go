// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/leadpilot/outreach-router/internal/models"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Channels   ChannelsConfig   `mapstructure:"channels"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Router     RouterConfig     `mapstructure:"router"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuditConfig configures the optional AMQP mirror of the audit event
// stream. An empty URL disables publishing.
type AuditConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type ChannelsConfig struct {
	Email EmailChannelConfig `mapstructure:"email"`
	Chat  ChatChannelConfig  `mapstructure:"chat"`
}

type EmailChannelConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type ChatChannelConfig struct {
	URL     string `mapstructure:"url"`
	AuthKey string `mapstructure:"auth_key"`
	Timeout int    `mapstructure:"timeout"`
}

// PolicyConfig is the configuration-file shape of models.SendPolicy.
type PolicyConfig struct {
	ApprovalRequired bool            `mapstructure:"approval_required"`
	DailySendCap     int             `mapstructure:"daily_send_cap"`
	Timezone         string          `mapstructure:"timezone"`
	WindowStart      string          `mapstructure:"window_start"`
	WindowEnd        string          `mapstructure:"window_end"`
	EnabledChannels  map[string]bool `mapstructure:"enabled_channels"`
}

type RouterConfig struct {
	MaxBatchSize   int                  `mapstructure:"max_batch_size"`
	MaxAttempts    int                  `mapstructure:"max_attempts"`
	SendTimeout    int                  `mapstructure:"send_timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"`
	Timeout          int     `mapstructure:"timeout"`
	FailureRatio     float64 `mapstructure:"failure_ratio"`
	ConsecutiveFails uint32  `mapstructure:"consecutive_fails"`
}

type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

type MiddlewareConfig struct {
	RateLimit      int      `mapstructure:"rate_limit"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	EnableCORS     bool     `mapstructure:"enable_cors"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 10)
	viper.SetDefault("server.write_timeout", 10)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("policy.approval_required", true)
	viper.SetDefault("policy.daily_send_cap", 100)
	viper.SetDefault("policy.timezone", "UTC")
	viper.SetDefault("router.max_batch_size", 25)
	viper.SetDefault("router.max_attempts", 3)
	viper.SetDefault("router.send_timeout", 30)
	viper.SetDefault("router.circuit_breaker.max_requests", 3)
	viper.SetDefault("router.circuit_breaker.interval", 60)
	viper.SetDefault("router.circuit_breaker.timeout", 60)
	viper.SetDefault("router.circuit_breaker.failure_ratio", 0.6)
	viper.SetDefault("router.circuit_breaker.consecutive_fails", 5)
	viper.SetDefault("channels.chat.timeout", 30)
	viper.SetDefault("channels.email.port", 587)
	viper.SetDefault("scheduler.interval_minutes", 2)
	viper.SetDefault("middleware.rate_limit", 100)
	viper.SetDefault("middleware.rate_limit_burst", 1000)
	viper.SetDefault("middleware.enable_cors", true)
	viper.SetDefault("middleware.allowed_origins", []string{"*"})

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Policy.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (p *PolicyConfig) validate() error {
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("invalid policy timezone %q: %w", p.Timezone, err)
		}
	}
	if (p.WindowStart == "") != (p.WindowEnd == "") {
		return fmt.Errorf("policy window requires both window_start and window_end")
	}
	for _, hhmm := range []string{p.WindowStart, p.WindowEnd} {
		if hhmm == "" {
			continue
		}
		if _, err := time.Parse("15:04", hhmm); err != nil {
			return fmt.Errorf("invalid policy window time %q: %w", hhmm, err)
		}
	}
	for name := range p.EnabledChannels {
		if !models.Channel(name).Valid() {
			return fmt.Errorf("unknown channel %q in policy.enabled_channels", name)
		}
	}
	return nil
}

// SendPolicy converts the configuration-file shape into the domain policy.
func (p *PolicyConfig) SendPolicy() models.SendPolicy {
	policy := models.SendPolicy{
		ApprovalRequired: p.ApprovalRequired,
		DailySendCap:     p.DailySendCap,
		EnabledChannels:  make(map[models.Channel]bool, len(p.EnabledChannels)),
	}
	for name, enabled := range p.EnabledChannels {
		policy.EnabledChannels[models.Channel(name)] = enabled
	}
	if p.WindowStart != "" && p.WindowEnd != "" {
		tz := p.Timezone
		if tz == "" {
			tz = "UTC"
		}
		policy.Window = &models.SendWindow{
			Timezone: tz,
			Start:    p.WindowStart,
			End:      p.WindowEnd,
		}
	}
	return policy
}

// GetDSN returns PostgreSQL connection string.
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}
