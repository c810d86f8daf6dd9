package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess/relational"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName is the name of the application.
	AppName = "ticketwolf"

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvApplicationId is the environment variable for the application ID.
	EnvApplicationId = `APPLICATION_ID`

	// EnvMongoUri is the environment variable for the MongoDB URI.
	EnvMongoUri = `MONGO_URI`

	// EnvMongoDatabase is the environment variable for the MongoDB database name.
	EnvMongoDatabase = `MONGO_DATABASE`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`

	// EnvStoreDriver is the environment variable selecting the storage backend.
	EnvStoreDriver = `STORE_DRIVER`

	// EnvDatabaseDsn is the environment variable for the relational database DSN.
	EnvDatabaseDsn = `DATABASE_DSN`

	// EnvRedisUrl is the environment variable for the Redis URL used for creation locks.
	EnvRedisUrl = `REDIS_URL`

	// EnvAutoCloseInterval is the environment variable for the time between auto-close sweeps.
	EnvAutoCloseInterval = `AUTO_CLOSE_INTERVAL`

	// EnvAutoCloseRate is the environment variable for the automatic closes per second.
	EnvAutoCloseRate = `AUTO_CLOSE_RATE`
)

// StoreDriverMongo selects the MongoDB backend.
const StoreDriverMongo = "mongo"

// Config is the configuration of the bot.
type Config struct {
	BotToken          string        `mapstructure:"bot_token"`
	ApplicationID     string        `mapstructure:"application_id"`
	MonitoringPort    string        `mapstructure:"monitoring_port"`
	StoreDriver       string        `mapstructure:"store_driver"`
	MongoURI          string        `mapstructure:"mongo_uri"`
	MongoDatabase     string        `mapstructure:"mongo_database"`
	DatabaseDSN       string        `mapstructure:"database_dsn"`
	RedisURL          string        `mapstructure:"redis_url"`
	AutoCloseInterval time.Duration `mapstructure:"auto_close_interval"`
	AutoCloseRate     float64       `mapstructure:"auto_close_rate"`
}

// LoadConfig reads the configuration from a .env file, an optional config file and the
// environment. The environment wins.
func LoadConfig(cfgFile string) (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("monitoring_port", "8080")
	v.SetDefault("store_driver", StoreDriverMongo)
	v.SetDefault("mongo_database", dataaccess.DefaultMongoDatabase)
	v.SetDefault("auto_close_interval", tickets.DefaultSweepInterval)
	v.SetDefault("auto_close_rate", tickets.DefaultCloseRate)

	for key, env := range map[string]string{
		"bot_token":           EnvBotToken,
		"application_id":      EnvApplicationId,
		"monitoring_port":     EnvMonitoringPort,
		"store_driver":        EnvStoreDriver,
		"mongo_uri":           EnvMongoUri,
		"mongo_database":      EnvMongoDatabase,
		"database_dsn":        EnvDatabaseDsn,
		"redis_url":           EnvRedisUrl,
		"auto_close_interval": EnvAutoCloseInterval,
		"auto_close_rate":     EnvAutoCloseRate,
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	c := new(Config)
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	return c, nil
}

// Validate checks that everything the bot needs to start is present.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvBotToken))
	}
	if c.ApplicationID == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvApplicationId))
	}
	errs = append(errs, c.validateStore())
	return errors.Join(errs...)
}

// validateStore checks the storage settings only. The migrate command needs nothing else.
func (c *Config) validateStore() error {
	switch c.StoreDriver {
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("%s is required for the %s store", EnvMongoUri, c.StoreDriver)
		}
	case relational.DialectPostgres, relational.DialectSQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%s is required for the %s store", EnvDatabaseDsn, c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown %s %q", EnvStoreDriver, c.StoreDriver)
	}
	return nil
}
