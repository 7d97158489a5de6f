package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:         AppConfig{Env: "local", Port: 8080, PublicBaseURL: "https://gateway.example.com"},
		StreamToken: StreamTokenConfig{Secret: "secret"},
		Voice:       VoiceConfig{WebSocketURL: "wss://voice.example.com/realtime"},
		CRM:         CRMConfig{BaseURL: "https://crm.example.com"},
	}
}

func TestValidateReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.StreamToken.TTL != 10*time.Minute {
		t.Fatalf("expected stream token ttl default, got %v", c.StreamToken.TTL)
	}
	if c.Relay.ContextTTL != 15*time.Minute {
		t.Fatalf("expected context ttl default, got %v", c.Relay.ContextTTL)
	}
	if c.CRM.Timeout != 5*time.Second {
		t.Fatalf("expected crm timeout default, got %v", c.CRM.Timeout)
	}
}

func TestValidateProductionRequiresSSLMode(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.Voice.APIKey = "key"
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "gateway"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidateProductionRequiresAuthToken(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.Voice.APIKey = "key"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "TWILIO_AUTH_TOKEN") {
		t.Fatalf("expected TWILIO_AUTH_TOKEN error, got %v", err)
	}
	c.Twilio.AuthToken = "twilio-token"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateLocalDefaultsSSLMode(t *testing.T) {
	c := validConfig()
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "gateway"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidateCapRequiresRedis(t *testing.T) {
	c := validConfig()
	c.Relay.MaxCallsPerCallee = 3
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for cap without redis")
	}
	c.Redis = RedisConfig{Host: "localhost", Port: 6379}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error with redis, got %v", err)
	}
}

func TestStreamURL(t *testing.T) {
	c := validConfig()
	got := c.StreamURL("tok123")
	if got != "wss://gateway.example.com/media-stream?token=tok123" {
		t.Fatalf("unexpected stream url: %q", got)
	}
	if !strings.HasPrefix(got, "wss://") {
		t.Fatalf("expected wss scheme, got %q", got)
	}
}
