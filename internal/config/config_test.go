package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// setRequired fills in the settings Load refuses to start without.
func setRequired() {
	viper.Set("youtube.channelid", "UCtest")
	viper.Set("youtube.apikey", "key123")
	viper.Set("discord.webhookurl", "https://discord.com/api/webhooks/1/abc")
	viper.Set("discord.roleid", "987654321")
	viper.Set("websub.callbackurl", "https://example.com")
}

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	setRequired()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 5069 {
		t.Errorf("Server.Port = %d, want 5069", cfg.Server.Port)
	}
	if cfg.WebSub.HubURL != "https://pubsubhubbub.appspot.com/subscribe" {
		t.Errorf("WebSub.HubURL = %s", cfg.WebSub.HubURL)
	}
	if cfg.WebSub.RotationPeriod != 48*time.Hour {
		t.Errorf("WebSub.RotationPeriod = %v, want 48h", cfg.WebSub.RotationPeriod)
	}
	if cfg.Recheck.RetryInterval != 0 {
		t.Errorf("Recheck.RetryInterval = %v, want 0", cfg.Recheck.RetryInterval)
	}
	if cfg.Database.Path != "data/videos.db" {
		t.Errorf("Database.Path = %s, want data/videos.db", cfg.Database.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", cfg.Logging.Level)
	}
}

func TestLoad_EnvironmentOnly(t *testing.T) {
	viper.Reset()

	t.Setenv("APP_YOUTUBE_CHANNELID", "UCenv")
	t.Setenv("APP_YOUTUBE_APIKEY", "envkey")
	t.Setenv("APP_DISCORD_WEBHOOKURL", "https://discord.com/api/webhooks/2/def")
	t.Setenv("APP_DISCORD_ROLEID", "1122334455")
	t.Setenv("APP_WEBSUB_CALLBACKURL", "https://callbacks.example.com")
	t.Setenv("APP_SERVER_PORT", "8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with env-only configuration error = %v", err)
	}

	if cfg.YouTube.ChannelID != "UCenv" {
		t.Errorf("YouTube.ChannelID = %s, want UCenv", cfg.YouTube.ChannelID)
	}
	if cfg.YouTube.APIKey != "envkey" {
		t.Errorf("YouTube.APIKey = %s, want envkey", cfg.YouTube.APIKey)
	}
	if cfg.Discord.WebhookURL != "https://discord.com/api/webhooks/2/def" {
		t.Errorf("Discord.WebhookURL = %s", cfg.Discord.WebhookURL)
	}
	if cfg.Discord.RoleID != "1122334455" {
		t.Errorf("Discord.RoleID = %s, want 1122334455", cfg.Discord.RoleID)
	}
	if cfg.WebSub.CallbackURL != "https://callbacks.example.com" {
		t.Errorf("WebSub.CallbackURL = %s", cfg.WebSub.CallbackURL)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		omit string
	}{
		{name: "missing channel ID", omit: "youtube.channelid"},
		{name: "missing API key", omit: "youtube.apikey"},
		{name: "missing Discord webhook URL", omit: "discord.webhookurl"},
		{name: "missing Discord role ID", omit: "discord.roleid"},
		{name: "missing callback URL", omit: "websub.callbackurl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			setRequired()
			viper.Set(tt.omit, "")

			_, err := Load()
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.omit) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.omit)
			}
		})
	}
}

func TestLoad_MissingRequiredListsAll(t *testing.T) {
	viper.Reset()

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded with empty config, want error")
	}

	for _, key := range []string{
		"youtube.channelid",
		"youtube.apikey",
		"discord.webhookurl",
		"discord.roleid",
		"websub.callbackurl",
	} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("Load() error missing %s: %v", key, err)
		}
	}
}

func TestTopicURL(t *testing.T) {
	cfg := WebSubConfig{}
	got := cfg.TopicURL("UCabc123")
	want := "https://www.youtube.com/xml/feeds/videos.xml?channel_id=UCabc123"
	if got != want {
		t.Errorf("TopicURL() = %s, want %s", got, want)
	}
}

func TestServerAddr(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 5069}
	if got := cfg.Addr(); got != "127.0.0.1:5069" {
		t.Errorf("Addr() = %s, want 127.0.0.1:5069", got)
	}
}
