package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all bot configuration
type Config struct {
	Nick        string `yaml:"nick"`
	NickPass    string `yaml:"nick_pass"`
	Alternate   string `yaml:"alternate"`
	Server      string `yaml:"server"`
	Port        int    `yaml:"port"`
	ServerPass  string `yaml:"server_pass"`
	IRCName     string `yaml:"irc_name"`
	Username    string `yaml:"username"`
	OperNick    string `yaml:"oper_nick"`
	OperPass    string `yaml:"oper_pass"`
	HomeChannel string `yaml:"home_channel"`
	DataDir     string `yaml:"data_dir"`
	MetricsAddr string `yaml:"metrics_addr"`

	Moderation Moderation `yaml:"moderation"`
}

// Moderation holds the enforcement engine settings
type Moderation struct {
	CommandPrefix     string   `yaml:"command_prefix"`
	JailChannel       string   `yaml:"jail_channel"`
	JailWindowSeconds int      `yaml:"jail_window_seconds"`
	JailFloodCount    int      `yaml:"jail_flood_count"`
	BlacklistMode     int      `yaml:"blacklist_mode"`
	CharLimit         int      `yaml:"char_limit"`
	CharLimitMode     int      `yaml:"char_limit_mode"`
	PreventNoName     bool     `yaml:"prevent_noname"`
	NoNameNote        string   `yaml:"noname_note"`
	AuthorizedUsers   []string `yaml:"authorized_users"`
	DetectAdmins      bool     `yaml:"detect_admins"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.HomeChannel == "" {
		cfg.HomeChannel = "#lobby"
	}
	m := &cfg.Moderation
	if m.CommandPrefix == "" {
		m.CommandPrefix = "/"
	}
	if m.JailChannel == "" {
		m.JailChannel = "#jail"
	}
	if m.JailWindowSeconds <= 0 {
		m.JailWindowSeconds = 10
	}
	if m.JailFloodCount <= 0 {
		m.JailFloodCount = 5
	}
	if m.BlacklistMode == 0 {
		m.BlacklistMode = 1
	}
	if m.CharLimitMode == 0 {
		m.CharLimitMode = 1
	}
	if m.NoNameNote == "" {
		m.NoNameNote = "Hello. Please set your nickname first, then reconnect. Thank you."
	}

	return &cfg, nil
}
