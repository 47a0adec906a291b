// internal/pkg/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, `
app:
  port: 9090
seckill:
  stream: stream.orders
  blockTimeout: 3s
  retryBackoff: 50ms
  lockTTL: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.App.Port)
	require.Equal(t, 3*time.Second, cfg.Seckill.BlockTimeout.Std())
	require.Equal(t, 50*time.Millisecond, cfg.Seckill.RetryBackoff.Std())
	require.Equal(t, 30*time.Second, cfg.Seckill.LockTTL.Std())
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `app: {port: 8080}`))
	require.NoError(t, err)
	require.Equal(t, "stream.orders", cfg.Seckill.Stream)
	require.Equal(t, "g1", cfg.Seckill.Group)
	require.Equal(t, "c1", cfg.Seckill.Consumer)
	require.Equal(t, 16, cfg.Seckill.MaxHandleAttempts)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(db.internal:3306)/hmdp")

	cfg, err := Load(writeConfig(t, `
infra:
  redis:
    addr: localhost:6379
`))
	require.NoError(t, err)
	require.Equal(t, "redis.internal:6380", cfg.Infra.Redis.Addr)
	require.Equal(t, "user:pass@tcp(db.internal:3306)/hmdp", cfg.Infra.Mysql.DSN)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
seckill:
  blockTimeout: not-a-duration
`))
	require.Error(t, err)
}
