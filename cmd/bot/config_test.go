package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadConfig reads. Viper ignores empty values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		EnvBotToken, EnvApplicationId, EnvMongoUri, EnvMongoDatabase, EnvMonitoringPort,
		EnvStoreDriver, EnvDatabaseDsn, EnvRedisUrl, EnvAutoCloseInterval, EnvAutoCloseRate,
	} {
		t.Setenv(env, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", c.MonitoringPort)
	assert.Equal(t, StoreDriverMongo, c.StoreDriver)
	assert.Equal(t, dataaccess.DefaultMongoDatabase, c.MongoDatabase)
	assert.Equal(t, tickets.DefaultSweepInterval, c.AutoCloseInterval)
	assert.Equal(t, tickets.DefaultCloseRate, c.AutoCloseRate)
}

func TestLoadConfig_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBotToken, "token")
	t.Setenv(EnvApplicationId, "app")
	t.Setenv(EnvStoreDriver, "SQLite")
	t.Setenv(EnvDatabaseDsn, "file::memory:")
	t.Setenv(EnvRedisUrl, "redis://localhost:6379/0")
	t.Setenv(EnvAutoCloseInterval, "30s")
	t.Setenv(EnvAutoCloseRate, "2.5")

	c, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "token", c.BotToken)
	assert.Equal(t, "app", c.ApplicationID)
	assert.Equal(t, "sqlite", c.StoreDriver)
	assert.Equal(t, "file::memory:", c.DatabaseDSN)
	assert.Equal(t, "redis://localhost:6379/0", c.RedisURL)
	assert.Equal(t, 30*time.Second, c.AutoCloseInterval)
	assert.Equal(t, 2.5, c.AutoCloseRate)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bot_token: from-file\napplication_id: app-file\nmonitoring_port: \"9090\"\n"), 0o600))
	t.Setenv(EnvApplicationId, "app-env")

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", c.BotToken)
	assert.Equal(t, "app-env", c.ApplicationID)
	assert.Equal(t, "9090", c.MonitoringPort)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "mongo",
			cfg:  Config{BotToken: "t", ApplicationID: "a", StoreDriver: StoreDriverMongo, MongoURI: "mongodb://localhost"},
		},
		{
			name: "postgres",
			cfg:  Config{BotToken: "t", ApplicationID: "a", StoreDriver: "postgres", DatabaseDSN: "host=localhost"},
		},
		{
			name:    "missing everything",
			cfg:     Config{StoreDriver: StoreDriverMongo},
			wantErr: []string{EnvBotToken, EnvApplicationId, EnvMongoUri},
		},
		{
			name:    "relational without dsn",
			cfg:     Config{BotToken: "t", ApplicationID: "a", StoreDriver: "sqlite"},
			wantErr: []string{EnvDatabaseDsn},
		},
		{
			name:    "unknown driver",
			cfg:     Config{BotToken: "t", ApplicationID: "a", StoreDriver: "cassandra"},
			wantErr: []string{EnvStoreDriver},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
