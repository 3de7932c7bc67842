package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ledgerbot/pkg/platform/strings"
)

// Bot carries chat transport settings.
type Bot struct {
	Token           string
	OperatorContact string
	PollTimeout     int
}

// Postgres carries connection parameters for the durable store.
type Postgres struct {
	Database string
	User     string
	Password string
	Host     string
	Port     int
}

// DSN renders the parameters as a postgres URL understood by pgx.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   "/" + p.Database,
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

// Ledger addresses the external spreadsheet.
type Ledger struct {
	CredentialsFile string
	SpreadsheetID   string
	SheetName       string
	Timeout         time.Duration
}

// RedisConfig is optional; an empty URL keeps conversation state in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// StateTTL of zero keeps forms until a command clears them.
	StateTTL     time.Duration
}

// Kafka is optional; no brokers sends audit events to the log.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

type Config struct {
	Bot              Bot
	Postgres         Postgres
	Ledger           Ledger
	Redis            RedisConfig
	Kafka            Kafka
	AdminIDs         []int64
	OpsAddr          string
	LogLevel         string
	DirectoryTimeout time.Duration
	NotifyTimeout    time.Duration
	NotifyParallel   int
	AuditBuffer      int
	// AuditSink is log, postgres or kafka.
	AuditSink string
}

var defaults = map[string]any{
	"OPERATOR_CONTACT":        "@usernamti",
	"BOT_POLL_TIMEOUT":        60,
	"POSTGRES_DB":             "kapital",
	"POSTGRES_USER":           "postgres",
	"POSTGRES_PASSWORD":       "postgres",
	"POSTGRES_HOST":           "localhost",
	"POSTGRES_PORT":           5432,
	"LEDGER_CREDENTIALS_FILE": "credentials.json",
	"LEDGER_SPREADSHEET_ID":   "10KP00nakL0LK9lyB7jQrfUtmtIQO6gzqJDP0rogTEww",
	"LEDGER_SHEET_NAME":       "Dashboard1",
	"LEDGER_TIMEOUT":          "15s",
	"REDIS_URL":               "",
	"REDIS_POOL_SIZE":         10,
	"REDIS_MIN_IDLE_CONNS":    2,
	"REDIS_DIAL_TIMEOUT":      "5s",
	"REDIS_READ_TIMEOUT":      "3s",
	"REDIS_WRITE_TIMEOUT":     "3s",
	"CONVERSATION_TTL":        "0s",
	"KAFKA_BROKERS":           "",
	"AUDIT_TOPIC":             "ledgerbot.audit",
	"AUDIT_BUFFER":            256,
	"AUDIT_SINK":              "log",
	"ADMIN_IDS":               "5657091547,5048593195",
	"OPS_ADDR":                ":9090",
	"LOG_LEVEL":               "info",
	"DIRECTORY_TIMEOUT":       "5s",
	"NOTIFY_TIMEOUT":          "10s",
	"NOTIFY_PARALLEL":         8,
}

// Load reads envFile (when present) into the process environment and then
// builds a Config from the environment. It is called once at startup.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	admins, err := parseAdminIDs(v.GetString("ADMIN_IDS"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Bot: Bot{
			Token:           v.GetString("BOT_TOKEN"),
			OperatorContact: v.GetString("OPERATOR_CONTACT"),
			PollTimeout:     v.GetInt("BOT_POLL_TIMEOUT"),
		},
		Postgres: Postgres{
			Database: v.GetString("POSTGRES_DB"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetInt("POSTGRES_PORT"),
		},
		Ledger: Ledger{
			CredentialsFile: v.GetString("LEDGER_CREDENTIALS_FILE"),
			SpreadsheetID:   v.GetString("LEDGER_SPREADSHEET_ID"),
			SheetName:       v.GetString("LEDGER_SHEET_NAME"),
			Timeout:         v.GetDuration("LEDGER_TIMEOUT"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
			StateTTL:     v.GetDuration("CONVERSATION_TTL"),
		},
		Kafka: Kafka{
			Brokers:    strings.SplitCSV(v.GetString("KAFKA_BROKERS")),
			AuditTopic: v.GetString("AUDIT_TOPIC"),
		},
		AdminIDs:         admins,
		OpsAddr:          v.GetString("OPS_ADDR"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		DirectoryTimeout: v.GetDuration("DIRECTORY_TIMEOUT"),
		NotifyTimeout:    v.GetDuration("NOTIFY_TIMEOUT"),
		NotifyParallel:   v.GetInt("NOTIFY_PARALLEL"),
		AuditBuffer:      v.GetInt("AUDIT_BUFFER"),
		AuditSink:        v.GetString("AUDIT_SINK"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the process cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Bot.Token == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.Ledger.SpreadsheetID == "" || c.Ledger.SheetName == "" {
		errs = append(errs, errors.New("LEDGER_SPREADSHEET_ID and LEDGER_SHEET_NAME are required"))
	}
	if c.Ledger.Timeout <= 0 || c.NotifyTimeout <= 0 || c.DirectoryTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.NotifyParallel <= 0 {
		errs = append(errs, errors.New("NOTIFY_PARALLEL must be positive"))
	}
	switch c.AuditSink {
	case "log", "postgres":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("AUDIT_SINK=kafka requires KAFKA_BROKERS"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUDIT_SINK %q must be log, postgres or kafka", c.AuditSink))
	}
	if len(c.AdminIDs) == 0 {
		errs = append(errs, errors.New("ADMIN_IDS must list at least one administrator"))
	}
	return errors.Join(errs...)
}

func parseAdminIDs(raw string) ([]int64, error) {
	parts := strings.SplitCSV(raw)
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_IDS: invalid id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
