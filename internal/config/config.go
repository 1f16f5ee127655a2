// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token        string `yaml:"token"`
	GuildID      string `yaml:"guild_id"`
	MemberRoleID string `yaml:"member_role_id"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type OpsConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type MailingListConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type EmailVerifyConfig struct {
	BaseURL string `yaml:"base_url"`
}

type LedgerConfig struct {
	GistID string `yaml:"gist_id"`
	Token  string `yaml:"token"`
	File   string `yaml:"file"`
}

type IntegrationsConfig struct {
	MailingList MailingListConfig `yaml:"mailing_list"`
	EmailVerify EmailVerifyConfig `yaml:"email_verify"`
	Ledger      LedgerConfig      `yaml:"ledger"`
}

type SweepConfig struct {
	Interval      time.Duration `yaml:"interval"`
	ReplayGrace   time.Duration `yaml:"replay_grace"`
	FarewellDelay time.Duration `yaml:"farewell_delay"`
}

type Config struct {
	Bot          BotConfig          `yaml:"bot"`
	Log          LogConfig          `yaml:"log"`
	Redis        RedisConfig        `yaml:"redis"`
	Ops          OpsConfig          `yaml:"ops"`
	Integrations IntegrationsConfig `yaml:"integrations"`
	Sweep        SweepConfig        `yaml:"sweep"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Bot.GuildID == "" {
		return nil, errors.New("bot.guild_id is required")
	}
	if cfg.Bot.MemberRoleID == "" {
		return nil, errors.New("bot.member_role_id is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// ApplyDefaults fills in every optional knob.
func (cfg *Config) ApplyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Ops.Port == 0 {
		cfg.Ops.Port = 8090
	}
	if cfg.Sweep.Interval <= 0 {
		cfg.Sweep.Interval = time.Minute
	}
	if cfg.Sweep.ReplayGrace <= 0 {
		cfg.Sweep.ReplayGrace = 2 * time.Minute
	}
	if cfg.Sweep.FarewellDelay < 0 {
		cfg.Sweep.FarewellDelay = 0
	} else if cfg.Sweep.FarewellDelay == 0 {
		cfg.Sweep.FarewellDelay = 5 * time.Second
	}
	if cfg.Integrations.EmailVerify.BaseURL == "" {
		cfg.Integrations.EmailVerify.BaseURL = "https://open.kickbox.com/v1/disposable"
	}
	if cfg.Integrations.Ledger.File == "" {
		cfg.Integrations.Ledger.File = "ledger.json"
	}
}
