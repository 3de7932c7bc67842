package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "kapital", cfg.Postgres.Database)
	assert.Equal(t, "postgres", cfg.Postgres.User)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "Dashboard1", cfg.Ledger.SheetName)
	assert.Equal(t, 15*time.Second, cfg.Ledger.Timeout)
	assert.Equal(t, []int64{5657091547, 5048593195}, cfg.AdminIDs)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "@usernamti", cfg.Bot.OperatorContact)
	assert.Equal(t, "log", cfg.AuditSink)
	assert.Zero(t, cfg.Redis.StateTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("ADMIN_IDS", " 1, 2 ,2,")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("NOTIFY_TIMEOUT", "2s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, cfg.AdminIDs)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t, 2*time.Second, cfg.NotifyTimeout)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BOT_TOKEN=from-file\nLEDGER_SHEET_NAME=Sheet9\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("BOT_TOKEN")
		os.Unsetenv("LEDGER_SHEET_NAME")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Bot.Token)
	assert.Equal(t, "Sheet9", cfg.Ledger.SheetName)
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "")
		_, err := Load("")
		require.ErrorContains(t, err, "BOT_TOKEN")
	})
	t.Run("bad admin id", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "token")
		t.Setenv("ADMIN_IDS", "12,abc")
		_, err := Load("")
		require.ErrorContains(t, err, "ADMIN_IDS")
	})
	t.Run("empty admin list", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "token")
		t.Setenv("ADMIN_IDS", " , ")
		_, err := Load("")
		require.ErrorContains(t, err, "at least one administrator")
	})
	t.Run("kafka sink without brokers", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "token")
		t.Setenv("AUDIT_SINK", "kafka")
		_, err := Load("")
		require.ErrorContains(t, err, "KAFKA_BROKERS")
	})
	t.Run("unknown sink", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "token")
		t.Setenv("AUDIT_SINK", "s3")
		_, err := Load("")
		require.ErrorContains(t, err, "AUDIT_SINK")
	})
}

func TestPostgresDSN(t *testing.T) {
	p := Postgres{Database: "kapital", User: "postgres", Password: "p@ss", Host: "db", Port: 5432}
	assert.Equal(t, "postgres://postgres:p%40ss@db:5432/kapital?sslmode=disable", p.DSN())
}
