// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	YouTube  YouTubeConfig
	Discord  DiscordConfig
	WebSub   WebSubConfig
	Recheck  RecheckConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Server   ServerConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// YouTubeConfig contains the monitored channel and API credentials.
type YouTubeConfig struct {
	ChannelID string
	APIKey    string
}

// DiscordConfig contains the outbound notification settings.
type DiscordConfig struct {
	WebhookURL string
	RoleID     string
}

// WebSubConfig contains hub subscription settings. CallbackURL is the public
// base URL under which the /webhook endpoint is reachable.
type WebSubConfig struct {
	HubURL         string
	CallbackURL    string
	RotationPeriod time.Duration
}

// RecheckConfig controls the deferred-recheck retry policy. RetryInterval of
// zero means a failed or still-gated recheck is not re-armed.
type RecheckConfig struct {
	RetryInterval time.Duration
}

// DatabaseConfig contains the SQLite database location.
type DatabaseConfig struct {
	Path string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables. It returns an
// error naming every missing required setting so the process refuses to start
// with a partial configuration.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	var missing []string

	if c.YouTube.ChannelID == "" {
		missing = append(missing, "youtube.channelid")
	}
	if c.YouTube.APIKey == "" {
		missing = append(missing, "youtube.apikey")
	}
	if c.Discord.WebhookURL == "" {
		missing = append(missing, "discord.webhookurl")
	}
	if c.Discord.RoleID == "" {
		missing = append(missing, "discord.roleid")
	}
	if c.WebSub.CallbackURL == "" {
		missing = append(missing, "websub.callbackurl")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

func setDefaults() {
	// Required settings. Viper only resolves environment variables during
	// Unmarshal for keys it already knows about, so each required key is
	// registered with an empty default; validate() still rejects the empty
	// value.
	viper.SetDefault("youtube.channelid", "")
	viper.SetDefault("youtube.apikey", "")
	viper.SetDefault("discord.webhookurl", "")
	viper.SetDefault("discord.roleid", "")
	viper.SetDefault("websub.callbackurl", "")

	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5069)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// WebSub
	viper.SetDefault("websub.huburl", "https://pubsubhubbub.appspot.com/subscribe")
	viper.SetDefault("websub.rotationperiod", 48*time.Hour)

	// Recheck
	viper.SetDefault("recheck.retryinterval", time.Duration(0))

	// Database
	viper.SetDefault("database.path", "data/videos.db")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}

// TopicURL returns the hub topic for the monitored channel's video feed.
func (c *WebSubConfig) TopicURL(channelID string) string {
	return "https://www.youtube.com/xml/feeds/videos.xml?channel_id=" + channelID
}

// Addr returns the server listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
