package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"FundPulse/internal/logger"
	"FundPulse/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Narrative struct {
		APIKey  string        `yaml:"api_key"`
		BaseURL string        `yaml:"base_url" default:"https://api.deepseek.com" validate:"url"`
		Model   string        `yaml:"model" default:"deepseek-chat"`
		Timeout time.Duration `yaml:"timeout" default:"10m" validate:"gt=0"`
	} `yaml:"narrative"`
	DataSource struct {
		HistoryBaseURL string        `yaml:"history_base_url" default:"https://fund.eastmoney.com" validate:"url"`
		QuoteBaseURL   string        `yaml:"quote_base_url" default:"https://fundgz.1234567.com.cn" validate:"url"`
		FetchTimeout   time.Duration `yaml:"fetch_timeout" default:"12s" validate:"gt=0"`
		Concurrency    int           `yaml:"concurrency" validate:"min=0,max=64"`
	} `yaml:"data_source"`
	Analysis struct {
		Window string `yaml:"window" default:"1month"`
	} `yaml:"analysis"`
	Holdings struct {
		StateFile string `yaml:"state_file" default:"data/holdings.json" validate:"required"`
	} `yaml:"holdings"`
	Schedule struct {
		AnalysisCron string `yaml:"analysis_cron" default:"0 */30 9-15 * * 1-5"`
		Narrate      bool   `yaml:"narrate"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token" validate:"required_with=ChatID"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/fundpulse.db"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr" default:":8080"`
	} `yaml:"server"`
	Log   logger.Config `yaml:"log"`
	Proxy string        `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

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
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("DEEPSEEK_API_KEY", &cfg.Narrative.APIKey)
	setString("NARRATIVE_BASE_URL", &cfg.Narrative.BaseURL)
	setString("NARRATIVE_MODEL", &cfg.Narrative.Model)
	setString("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	setString("HTTPS_PROXY", &cfg.Proxy)
	setString("CRON_ANALYSIS", &cfg.Schedule.AnalysisCron)
	setString("ANALYSIS_WINDOW", &cfg.Analysis.Window)
	setString("HOLDINGS_FILE", &cfg.Holdings.StateFile)
	setString("SQLITE_PATH", &cfg.Database.SQLitePath)
	setString("SERVER_ADDR", &cfg.Server.Addr)
	setString("LOG_LEVEL", &cfg.Log.Level)

	if v := os.Getenv("FETCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DataSource.Concurrency = n
		}
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DataSource.FetchTimeout = d
		}
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Pretty = b
		}
	}
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, ok := model.ParsePeriodWindow(c.Analysis.Window); !ok {
		return fmt.Errorf("analysis.window %q is not one of 1week, 1month, 3month, 6month", c.Analysis.Window)
	}
	if c.Schedule.AnalysisCron != "" {
		if _, err := CronParser().Parse(c.Schedule.AnalysisCron); err != nil {
			return fmt.Errorf("schedule.analysis_cron: %w", err)
		}
	}
	return nil
}

// cronSpec matches the scheduler: six fields with leading seconds.
const cronSpec = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

// CronParser returns the parser used for every cron expression.
func CronParser() cron.Parser {
	return cron.NewParser(cronSpec)
}

// Window returns the configured default analysis window.
func (c *Config) Window() model.PeriodWindow {
	w, _ := model.ParsePeriodWindow(c.Analysis.Window)
	return w
}

// NarrationEnabled reports whether an API key is configured.
func (c *Config) NarrationEnabled() bool {
	return c.Narrative.APIKey != ""
}

// TelegramEnabled reports whether the bot is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
