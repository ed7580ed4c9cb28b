package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every configuration error. It is fatal at startup.
var ErrInvalid = errors.New("invalid config")

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"log"`

	DataSource struct {
		Provider       string        `yaml:"provider" default:"yahoo" validate:"oneof=yahoo vstrader mock"`
		BaseURL        string        `yaml:"base_url"`
		APIKey         string        `yaml:"api_key"`
		Period         string        `yaml:"period" default:"daily" validate:"oneof=daily weekly"`
		LookbackDays   int           `yaml:"lookback_days" default:"60" validate:"gte=1"`
		FetchTimeout   time.Duration `yaml:"fetch_timeout" default:"8s" validate:"gt=0"`
		RequestsPerSec int           `yaml:"requests_per_sec" default:"5" validate:"gt=0"`
	} `yaml:"data_source"`

	Watchlist struct {
		Symbols    []string `yaml:"symbols" default:"[\"000001.XSHG\",\"399001.XSHE\",\"002050.XSHE\",\"603087.XSHG\",\"600089.XSHG\",\"600845.XSHG\",\"600592.XSHG\"]"`
		SQLitePath string   `yaml:"sqlite_path"`
	} `yaml:"watchlist"`

	Indicators struct {
		RSIWindow         int     `yaml:"rsi_window" default:"14" validate:"gte=1"`
		MACDFast          int     `yaml:"macd_fast" default:"12" validate:"gte=1"`
		MACDSlow          int     `yaml:"macd_slow" default:"26" validate:"gtfield=MACDFast"`
		MACDSignal        int     `yaml:"macd_signal" default:"9" validate:"gte=1"`
		BreakoutLookback  int     `yaml:"breakout_lookback" default:"20" validate:"gte=2"`
		BreakoutThreshold float64 `yaml:"breakout_threshold" default:"0.995" validate:"gt=0,lte=1"`
		LevelsLookback    int     `yaml:"levels_lookback" default:"30" validate:"gte=2"`
		LevelsBand        float64 `yaml:"levels_band" default:"0.02" validate:"gt=0,lt=1"`
		VolumeWindow      int     `yaml:"volume_window" default:"10" validate:"gte=1"`
	} `yaml:"indicators"`

	Rules struct {
		Overbought               float64 `yaml:"overbought" default:"70" validate:"gt=0,lte=100"`
		Oversold                 float64 `yaml:"oversold" default:"30" validate:"gte=0,ltfield=Overbought"`
		PriceAlertPercent        float64 `yaml:"price_alert_percent" default:"2" validate:"gt=0"`
		PriceHighSeverityPercent float64 `yaml:"price_high_severity_percent" default:"5" validate:"gtefield=PriceAlertPercent"`
		PriceAverageWindow       int     `yaml:"price_average_window" default:"10" validate:"gte=1"`
		VolumeRatioTrigger       float64 `yaml:"volume_ratio_trigger" default:"2" validate:"gt=0"`
	} `yaml:"rules"`

	Dedup struct {
		Size        int           `yaml:"size" default:"10" validate:"gte=1"`
		Cooldown    time.Duration `yaml:"cooldown" default:"300s" validate:"gt=0"`
		HistorySize int           `yaml:"history_size" default:"200" validate:"gtefield=Size"`
	} `yaml:"dedup"`

	Schedule struct {
		Timezone         string        `yaml:"timezone" default:"Asia/Shanghai"`
		TradingStart     string        `yaml:"trading_start" default:"09:30"`
		TradingEnd       string        `yaml:"trading_end" default:"15:00"`
		MarketMIC        string        `yaml:"market_mic" validate:"omitempty,len=4,alpha"`
		TradingInterval  time.Duration `yaml:"trading_interval" default:"5m" validate:"gt=0"`
		OffHoursInterval time.Duration `yaml:"off_hours_interval" default:"10m" validate:"gt=0"`
		CalendarCheck    time.Duration `yaml:"calendar_check" default:"60s" validate:"gte=1s"`
		DailyReportTime  string        `yaml:"daily_report_time" default:"17:00"`
		SentimentDay     string        `yaml:"sentiment_day" default:"monday"`
		SentimentTime    string        `yaml:"sentiment_time" default:"09:00"`
	} `yaml:"schedule"`

	Report struct {
		IndexSymbols []string `yaml:"index_symbols" default:"[\"000001.XSHG\",\"399001.XSHE\",\"399006.XSHE\"]"`
		TopSymbols   int      `yaml:"top_symbols" default:"5" validate:"gte=0"`
		RecentAlerts int      `yaml:"recent_alerts" default:"10" validate:"gte=0"`
	} `yaml:"report"`

	Notifiers     []SinkConfig  `yaml:"notifiers" validate:"dive"`
	NotifyTimeout time.Duration `yaml:"notify_timeout" default:"20s" validate:"gt=0"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`

	Proxy string `yaml:"proxy"`
}

// SinkConfig is one entry of the notifier list; Type selects which of the
// remaining fields apply.
type SinkConfig struct {
	Type       string `yaml:"type" validate:"oneof=telegram wecom log"`
	BotToken   string `yaml:"bot_token"`
	ChatID     string `yaml:"chat_id"`
	Polling    bool   `yaml:"polling"`
	WebhookURL string `yaml:"webhook_url"`
}

var validate = validator.New()

// Load fills the defaults, then overlays the YAML file and the environment.
// Values set explicitly in the file, zero included, win over the defaults. A
// missing file yields an all-default config.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("%w: defaults: %v", ErrInvalid, err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse: %v", ErrInvalid, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides file values from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Watchlist.SQLitePath = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Watchlist.Symbols = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DataSource.LookbackDays = n
		}
	}

	// Telegram credentials from the environment fill the first telegram
	// sink, or add one when none is configured.
	token, chat := os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID")
	if token != "" || chat != "" {
		idx := -1
		for i, n := range cfg.Notifiers {
			if n.Type == "telegram" {
				idx = i
				break
			}
		}
		if idx < 0 {
			cfg.Notifiers = append(cfg.Notifiers, SinkConfig{Type: "telegram", Polling: true})
			idx = len(cfg.Notifiers) - 1
		}
		if token != "" {
			cfg.Notifiers[idx].BotToken = token
		}
		if chat != "" {
			cfg.Notifiers[idx].ChatID = chat
		}
	}
	if v := os.Getenv("WECHAT_WORK_WEBHOOK"); v != "" {
		found := false
		for _, n := range cfg.Notifiers {
			found = found || (n.Type == "wecom" && n.WebhookURL == v)
		}
		if !found {
			cfg.Notifiers = append(cfg.Notifiers, SinkConfig{Type: "wecom", WebhookURL: v})
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks field constraints and the cross-field rules the struct tags
// cannot express. Every error wraps ErrInvalid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (%s)", ErrInvalid, fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.DataSource.Provider == "vstrader" && c.DataSource.BaseURL == "" {
		return fmt.Errorf("%w: data_source.base_url is required for vstrader", ErrInvalid)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("%w: schedule.timezone %q: %v", ErrInvalid, c.Schedule.Timezone, err)
	}

	clocks := map[string]string{
		"schedule.trading_start":     c.Schedule.TradingStart,
		"schedule.trading_end":       c.Schedule.TradingEnd,
		"schedule.daily_report_time": c.Schedule.DailyReportTime,
		"schedule.sentiment_time":    c.Schedule.SentimentTime,
	}
	for name, v := range clocks {
		if _, err := ParseClock(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
	}
	start, _ := ParseClock(c.Schedule.TradingStart)
	end, _ := ParseClock(c.Schedule.TradingEnd)
	if end < start {
		return fmt.Errorf("%w: schedule.trading_end before trading_start", ErrInvalid)
	}
	if _, err := ParseWeekday(c.Schedule.SentimentDay); err != nil {
		return fmt.Errorf("%w: schedule.sentiment_day: %v", ErrInvalid, err)
	}

	seen := map[string]bool{}
	for i, n := range c.Notifiers {
		switch n.Type {
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return fmt.Errorf("%w: notifiers[%d]: telegram needs bot_token and chat_id", ErrInvalid, i)
			}
			if n.WebhookURL != "" {
				return fmt.Errorf("%w: notifiers[%d]: telegram does not take webhook_url", ErrInvalid, i)
			}
		case "wecom":
			if n.WebhookURL == "" {
				return fmt.Errorf("%w: notifiers[%d]: wecom needs webhook_url", ErrInvalid, i)
			}
			if n.BotToken != "" || n.ChatID != "" || n.Polling {
				return fmt.Errorf("%w: notifiers[%d]: wecom only takes webhook_url", ErrInvalid, i)
			}
		}
		key := n.Type + "|" + n.BotToken + "|" + n.ChatID + "|" + n.WebhookURL
		if seen[key] {
			return fmt.Errorf("%w: notifiers[%d]: duplicate %s sink", ErrInvalid, i, n.Type)
		}
		seen[key] = true
	}
	return nil
}

// Location returns the configured schedule timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ParseClock parses an "HH:MM" wall-clock time into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ParseWeekday parses an English weekday name, case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) || strings.EqualFold(d.String()[:3], s) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
