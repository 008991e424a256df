package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"recruitment-portal/internal/booking"
)

type Config struct {
	Server       ServerConfig        `yaml:"server"`
	Logging      LoggingConfig       `yaml:"logging"`
	Database     DatabaseConfig      `yaml:"database"`
	Auth         AuthConfig          `yaml:"auth"`
	Mail         MailConfig          `yaml:"mail"`
	Calendar     CalendarConfig      `yaml:"calendar"`
	Redis        RedisConfig         `yaml:"redis"`
	RateLimit    RateLimitConfig     `yaml:"rate_limit"`
	Audit        AuditConfig         `yaml:"audit"`
	TimeZone     string              `yaml:"time_zone"`
	Interviewers []InterviewerConfig `yaml:"interviewers"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	Mode         string        `yaml:"mode"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	// URL empty selects the in-memory store.
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	Admins       []string      `yaml:"admins"`
	StaticTokens []string      `yaml:"static_tokens"`
	SecureCookie bool          `yaml:"secure_cookie"`
	Google       GoogleConfig  `yaml:"google"`
}

type GoogleConfig struct {
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	RedirectURL   string `yaml:"redirect_url"`
	AllowedDomain string `yaml:"allowed_domain"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// Timeout bounds each relay round trip.
	Timeout time.Duration `yaml:"timeout"`
}

type CalendarConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
	CalendarID      string `yaml:"calendar_id"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type RateLimitConfig struct {
	RPS    float64       `yaml:"rps"`
	Burst  int           `yaml:"burst"`
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type AuditConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type InterviewerConfig struct {
	ID         string         `yaml:"id"`
	Title      string         `yaml:"title"`
	Email      string         `yaml:"email"`
	MeetingURL string         `yaml:"meeting_url"`
	Windows    []WindowConfig `yaml:"windows"`
}

// WindowConfig sets either Date (one day) or Weekday (every week).
type WindowConfig struct {
	Date        string `yaml:"date"`
	Weekday     string `yaml:"weekday"`
	Start       string `yaml:"start"`
	End         string `yaml:"end"`
	SlotMinutes int    `yaml:"slot_minutes"`
}

// Load reads .env (if present), expands ${VAR} references in the YAML file
// at path and applies env overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env only
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Auth.JWTSecret, "JWT_HMAC_SECRET")
	setString(&c.Auth.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Auth.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Auth.Google.RedirectURL, "GOOGLE_REDIRECT_URL")
	setString(&c.Redis.Address, "REDIS_ADDR")
	setString(&c.Server.Mode, "GIN_MODE")
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if v := os.Getenv("STATIC_TOKENS"); strings.TrimSpace(v) != "" {
		c.Auth.StaticTokens = append(c.Auth.StaticTokens, strings.Split(v, ",")...)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 12 * time.Hour
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Mail.Timeout == 0 {
		c.Mail.Timeout = 15 * time.Second
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 1
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}
	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = 30
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Audit.Interval == 0 {
		c.Audit.Interval = 15 * time.Minute
	}
	if c.TimeZone == "" {
		c.TimeZone = "UTC"
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_HMAC_SECRET) is required")
	}
	if c.Calendar.Enabled && (c.Calendar.CredentialsFile == "" || c.Calendar.CalendarID == "") {
		return errors.New("calendar.credentials_file and calendar.calendar_id are required when calendar is enabled")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("time_zone: %w", err)
	}
	for name, d := range map[string]time.Duration{
		"audit.interval":    c.Audit.Interval,
		"rate_limit.window": c.RateLimit.Window,
		"auth.session_ttl":  c.Auth.SessionTTL,
		"mail.timeout":      c.Mail.Timeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if _, err := c.Directory(); err != nil {
		return err
	}
	return nil
}

// Location returns the zone interview times are expressed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Directory converts the configured interviewers.
func (c *Config) Directory() ([]booking.Interviewer, error) {
	seen := make(map[string]bool, len(c.Interviewers))
	out := make([]booking.Interviewer, 0, len(c.Interviewers))
	for _, ic := range c.Interviewers {
		if ic.ID == "" {
			return nil, errors.New("interviewer without id")
		}
		if seen[ic.ID] {
			return nil, fmt.Errorf("duplicate interviewer %q", ic.ID)
		}
		seen[ic.ID] = true

		iv := booking.Interviewer{
			ID:         ic.ID,
			Title:      ic.Title,
			Email:      ic.Email,
			MeetingURL: ic.MeetingURL,
		}
		for i, wc := range ic.Windows {
			w, err := wc.window()
			if err != nil {
				return nil, fmt.Errorf("interviewer %s window %d: %w", ic.ID, i, err)
			}
			iv.Windows = append(iv.Windows, w)
		}
		out = append(out, iv)
	}
	return out, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (wc WindowConfig) window() (booking.Window, error) {
	var w booking.Window
	switch {
	case wc.Date != "":
		d, err := booking.ParseDay(wc.Date)
		if err != nil {
			return w, err
		}
		w.Date = d
	case wc.Weekday != "":
		wd, ok := weekdays[strings.ToLower(wc.Weekday)]
		if !ok {
			return w, fmt.Errorf("unknown weekday %q", wc.Weekday)
		}
		w.Weekday = wd
	default:
		return w, errors.New("date or weekday required")
	}

	start, err := booking.ParseClock(wc.Start)
	if err != nil {
		return w, err
	}
	end, err := booking.ParseClock(wc.End)
	if err != nil {
		return w, err
	}
	if end <= start {
		return w, errors.New("end must be after start")
	}
	if wc.SlotMinutes <= 0 {
		return w, errors.New("slot_minutes must be positive")
	}
	w.Start, w.End, w.SlotMinutes = start, end, wc.SlotMinutes
	return w, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
