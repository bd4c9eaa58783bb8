package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/atlekbai/abstract_sql/internal/ddl"
	"github.com/atlekbai/abstract_sql/internal/dialect"
	"github.com/atlekbai/abstract_sql/internal/optimizer"
)

const (
	KeyEngine           = "engine"
	KeyNamespace        = "namespace"
	KeyIfNotExists      = "if_not_exists"
	KeyCheckConstraints = "optimize.check_constraints"
	KeyUniqueIndexes    = "optimize.unique_indexes"
	KeyLogLevel         = "log_level"

	envPrefix = "ABSTRACTSQL"
)

type Config struct {
	Engine           string
	Namespace        string
	IfNotExists      bool
	CheckConstraints bool
	UniqueIndexes    bool
	LogLevel         string
}

// New returns a viper instance with defaults and environment binding set up.
// ABSTRACTSQL_OPTIMIZE_CHECK_CONSTRAINTS sets optimize.check_constraints.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyEngine, string(dialect.NamePostgres))
	v.SetDefault(KeyNamespace, "")
	v.SetDefault(KeyIfNotExists, true)
	v.SetDefault(KeyCheckConstraints, true)
	v.SetDefault(KeyUniqueIndexes, true)
	v.SetDefault(KeyLogLevel, "info")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads configFile, or abstractsql.yaml from the working directory
// when configFile is empty. Only an explicit file must exist.
func ReadFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("abstractsql")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Engine:           strings.ToLower(v.GetString(KeyEngine)),
		Namespace:        v.GetString(KeyNamespace),
		IfNotExists:      v.GetBool(KeyIfNotExists),
		CheckConstraints: v.GetBool(KeyCheckConstraints),
		UniqueIndexes:    v.GetBool(KeyUniqueIndexes),
		LogLevel:         v.GetString(KeyLogLevel),
	}
	if _, err := cfg.Dialect(); err != nil {
		return nil, err
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Dialect() (dialect.Engine, error) {
	return dialect.Lookup(c.Engine)
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (c *Config) OptimizerOptions() optimizer.Options {
	opts := optimizer.DefaultOptions()
	opts.CheckConstraints = c.CheckConstraints
	opts.PartialUniqueIndexes = c.UniqueIndexes
	return opts
}

func (c *Config) DDLOptions() ddl.Options {
	opts := ddl.DefaultOptions()
	opts.IfNotExists = c.IfNotExists
	opts.Namespace = c.Namespace
	return opts
}
