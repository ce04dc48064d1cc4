package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"MarketDigest/internal/model"
)

// Config holds all application configuration. It is built once at startup
// and handed to constructors; nothing mutates it afterwards.
type Config struct {
	Instruments        []model.Instrument `yaml:"instruments" validate:"required,min=1,dive"`
	CyclicalIndustries []string           `yaml:"cyclical_industries"`
	IndustrySecIDs     map[string]string  `yaml:"industry_secids"`
	DataSource         struct {
		QuoteURL      string        `yaml:"quote_url" validate:"required,url"`
		HistoryURL    string        `yaml:"history_url" validate:"required,url"`
		UserAgent     string        `yaml:"user_agent"`
		Referer       string        `yaml:"referer"`
		Timeout       time.Duration `yaml:"timeout"`
		RateLimit     int           `yaml:"rate_limit" validate:"gte=0"`
		HistoryDays   int           `yaml:"history_days" validate:"gte=1"`
		TechnicalDays int           `yaml:"technical_days" validate:"gte=1"`
		SectorTopK    int           `yaml:"sector_top_k" validate:"gte=1"`
		Retries       int           `yaml:"retries" validate:"gte=1"`
		RetryBackoff  time.Duration `yaml:"retry_backoff"`
	} `yaml:"data_source"`
	Oracle struct {
		Provider        string        `yaml:"provider" validate:"oneof=command claude gemini"`
		Command         string        `yaml:"command"`
		Args            []string      `yaml:"args"`
		APIKey          string        `yaml:"api_key"`
		Model           string        `yaml:"model"`
		MaxTokens       int           `yaml:"max_tokens"`
		Timeout         time.Duration `yaml:"timeout"`
		RefusalPatterns []string      `yaml:"refusal_patterns"`
	} `yaml:"oracle"`
	Email struct {
		SMTPHost string `yaml:"smtp_host"`
		SMTPPort int    `yaml:"smtp_port"`
		Sender   string `yaml:"sender" validate:"omitempty,email"`
		AuthCode string `yaml:"auth_code"`
		Receiver string `yaml:"receiver" validate:"omitempty,email"`
		FromName string `yaml:"from_name"`
	} `yaml:"email"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		ReportCron   string `yaml:"report_cron"`
		SkipWeekends bool   `yaml:"skip_weekends"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	ReportsDir string `yaml:"reports_dir"`
	LogLevel   string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Proxy      string `yaml:"proxy"`
}

// DefaultInstruments is the instrument set used when none is configured.
var DefaultInstruments = []model.Instrument{
	{Code: "000300", Name: "沪深300", SecID: "1.000300", Type: model.InstrumentIndex},
	{Code: "161725", Name: "招商中证白酒指数", SecID: "0.161725", Type: model.InstrumentFund},
	{Code: "600036", Name: "招商银行", SecID: "1.600036", Type: model.InstrumentStock},
}

// DefaultIndustrySecIDs maps cyclical industry names to board secids.
var DefaultIndustrySecIDs = map[string]string{
	"军工":   "90.BK0424",
	"猪肉":   "90.BK0574",
	"半导体":  "90.BK0917",
	"光伏":   "90.BK0822",
	"新能源车": "90.BK0900",
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Schedule.SkipWeekends = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("EMAIL_SENDER"); v != "" {
		cfg.Email.Sender = v
	}
	if v := os.Getenv("EMAIL_AUTH_CODE"); v != "" {
		cfg.Email.AuthCode = v
	}
	if v := os.Getenv("EMAIL_RECEIVER"); v != "" {
		cfg.Email.Receiver = v
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		cfg.DataSource.UserAgent = v
	}
	if v := os.Getenv("REFERER"); v != "" {
		cfg.DataSource.Referer = v
	}
	if v := os.Getenv("REPORTS_DIR"); v != "" {
		cfg.ReportsDir = v
	}
	if v := os.Getenv("CYCLICAL_INDUSTRIES"); v != "" {
		cfg.CyclicalIndustries = splitList(v)
	}
	if v := os.Getenv("ORACLE_PROVIDER"); v != "" {
		cfg.Oracle.Provider = v
	}
	if v := os.Getenv("ORACLE_COMMAND"); v != "" {
		cfg.Oracle.Command = v
	}
	if cfg.Oracle.APIKey == "" {
		switch cfg.Oracle.Provider {
		case "claude":
			cfg.Oracle.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini":
			cfg.Oracle.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		cfg.Schedule.ReportCron = v
	}
}

func applyDefaults(cfg *Config) {
	if len(cfg.Instruments) == 0 {
		cfg.Instruments = append([]model.Instrument(nil), DefaultInstruments...)
	}
	if cfg.CyclicalIndustries == nil {
		cfg.CyclicalIndustries = []string{"军工"}
	}
	if cfg.IndustrySecIDs == nil {
		cfg.IndustrySecIDs = make(map[string]string, len(DefaultIndustrySecIDs))
		for k, v := range DefaultIndustrySecIDs {
			cfg.IndustrySecIDs[k] = v
		}
	}

	ds := &cfg.DataSource
	if ds.QuoteURL == "" {
		ds.QuoteURL = "https://push2.eastmoney.com"
	}
	if ds.HistoryURL == "" {
		ds.HistoryURL = "https://push2his.eastmoney.com"
	}
	if ds.UserAgent == "" {
		ds.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if ds.Referer == "" {
		ds.Referer = "https://quote.eastmoney.com/"
	}
	if ds.Timeout == 0 {
		ds.Timeout = 10 * time.Second
	}
	if ds.RateLimit == 0 {
		ds.RateLimit = 5
	}
	if ds.HistoryDays == 0 {
		ds.HistoryDays = 3
	}
	if ds.TechnicalDays == 0 {
		ds.TechnicalDays = 365
	}
	if ds.SectorTopK == 0 {
		ds.SectorTopK = 5
	}
	if ds.Retries == 0 {
		ds.Retries = 3
	}
	if ds.RetryBackoff == 0 {
		ds.RetryBackoff = 2 * time.Second
	}

	if cfg.Oracle.Provider == "" {
		cfg.Oracle.Provider = "command"
	}
	if cfg.Oracle.Command == "" {
		cfg.Oracle.Command = "qodercli"
	}
	if len(cfg.Oracle.Args) == 0 {
		cfg.Oracle.Args = []string{"-p"}
	}
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = 180 * time.Second
	}
	if cfg.Oracle.MaxTokens == 0 {
		cfg.Oracle.MaxTokens = 2048
	}
	if cfg.Oracle.Model == "" {
		switch cfg.Oracle.Provider {
		case "claude":
			cfg.Oracle.Model = "claude-sonnet-4-20250514"
		case "gemini":
			cfg.Oracle.Model = "gemini-2.0-flash"
		}
	}

	if cfg.Email.SMTPHost == "" {
		cfg.Email.SMTPHost = "smtp.163.com"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 465
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "市场分析助手"
	}

	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 30 15 * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/market_digest.db"
	}
	if cfg.ReportsDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.ReportsDir = filepath.Join(home, "stock-reports", "reports")
		} else {
			cfg.ReportsDir = "reports"
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Oracle.Provider {
	case "command":
		if c.Oracle.Command == "" {
			return fmt.Errorf("oracle.command is required for the command provider")
		}
	case "claude", "gemini":
		if c.Oracle.APIKey == "" {
			return fmt.Errorf("oracle.api_key is required for the %s provider", c.Oracle.Provider)
		}
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle.timeout must be positive")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, in := range c.Instruments {
		if seen[in.SecID] {
			return fmt.Errorf("instrument %s configured twice", in.SecID)
		}
		seen[in.SecID] = true
	}
	return nil
}

// EmailConfigured reports whether all credentials needed to send mail are set.
func (c *Config) EmailConfigured() bool {
	return c.Email.Sender != "" && c.Email.AuthCode != "" && c.Email.Receiver != ""
}

// TelegramConfigured reports whether operator alerts can be sent.
func (c *Config) TelegramConfigured() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
