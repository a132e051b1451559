package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_YAMLAndExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASS", "s3cret")
	path := writeConfig(t, `
server:
  port: 9090
  env: production
database:
  driver: mysql
  host: db
  port: 3306
  user: app
  password: ${TEST_DB_PASS}
  dbname: reports
jwt:
  secret: abcdefgh
billing:
  cycle_days: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "app:s3cret@tcp(db:3306)/reports?charset=utf8mb4&parseTime=True&loc=UTC", cfg.Database.GetDSN())
	// untouched defaults survive
	assert.Equal(t, 14, cfg.Billing.TrialDays)
	assert.Equal(t, 100, cfg.Cron.BatchDelayMs)
}

func TestLoad_EnvOverridesAndMissingFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DB_PORT", "6543")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Contains(t, cfg.Database.GetDSN(), "port=6543")
	assert.Contains(t, cfg.Database.GetDSN(), "sslmode=disable")
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := writeConfig(t, "server:\n  port: 8080\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "****", mask("abc"))
	assert.Equal(t, "ab****gh", mask("abcdefgh"))
}

func TestConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("APP_ENV", "")
	assert.Equal(t, "configs/config.local.yaml", ConfigPath())

	t.Setenv("APP_ENV", "prod")
	assert.Equal(t, "configs/config.prod.yaml", ConfigPath())

	t.Setenv("CONFIG_PATH", "/etc/rankreport.yaml")
	assert.Equal(t, "/etc/rankreport.yaml", ConfigPath())
}
