// Package config loads the settings a solve run needs from a config file
// plus the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
)

// Config holds everything cmd/smtsched needs to assemble a catalog and
// run one Engine.Solve call.
type Config struct {
	Input struct {
		Stages   string `mapstructure:"stages"`
		Lines    string `mapstructure:"lines"`
		Products string `mapstructure:"products"`
		Routings string `mapstructure:"routings"`
		Calendar string `mapstructure:"calendar"`
		Excel    string `mapstructure:"excel"`
	} `mapstructure:"input"`

	Routing struct {
		BaseLeadTimeMinutes float64 `mapstructure:"base_lead_time_minutes"`
		Complexity          float64 `mapstructure:"complexity"`
	} `mapstructure:"routing"`

	Shift struct {
		StartMinute int `mapstructure:"start_minute"`
		EndMinute   int `mapstructure:"end_minute"`
		BreakStart  int `mapstructure:"break_start"`
		BreakEnd    int `mapstructure:"break_end"`
	} `mapstructure:"shift"`

	Solver struct {
		TimeLimitSeconds int   `mapstructure:"time_limit_seconds"`
		NumWorkers       int32 `mapstructure:"num_workers"`
		RandomSeed       int64 `mapstructure:"random_seed"`
	} `mapstructure:"solver"`

	Flags entities.FeatureFlags `mapstructure:"flags"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`

	Output struct {
		Format string `mapstructure:"format"`
		Dir    string `mapstructure:"dir"`
	} `mapstructure:"output"`
}

// Load reads configuration from configPath, or from ./config.yaml when
// configPath is empty. SMTSCHED_-prefixed environment variables override
// values from the file, and the built-in defaults fill in the rest.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SMTSCHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("routing.base_lead_time_minutes", 15.0)
	v.SetDefault("routing.complexity", 1.0)
	v.SetDefault("shift.start_minute", 480)
	v.SetDefault("shift.end_minute", 1020)
	v.SetDefault("shift.break_start", 720)
	v.SetDefault("shift.break_end", 750)
	v.SetDefault("solver.time_limit_seconds", 60)
	v.SetDefault("solver.num_workers", 8)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("output.format", "text")

	flags := entities.DefaultFeatureFlags()
	v.SetDefault("flags.enablelotsplitting", flags.EnableLotSplitting)
	v.SetDefault("flags.enablecustomrouting", flags.EnableCustomRouting)
	v.SetDefault("flags.enablestagetransfertime", flags.EnableStageTransferTime)
	v.SetDefault("flags.enablelinetransfertime", flags.EnableLineTransferTime)
	v.SetDefault("flags.enablepriorityscheduling", flags.EnablePriorityScheduling)
	v.SetDefault("flags.useharddeadlineconstraint", flags.UseHardDeadlineConstraint)
	v.SetDefault("flags.enablestagenaming", flags.EnableStageNaming)
}

// DefaultShift converts the shift section into an entities.Shift.
func (c *Config) DefaultShift() entities.Shift {
	return entities.Shift{
		StartMinute: c.Shift.StartMinute,
		EndMinute:   c.Shift.EndMinute,
		BreakStart:  c.Shift.BreakStart,
		BreakEnd:    c.Shift.BreakEnd,
	}
}

// BaseLeadTime and Complexity expose the routing defaults as
// decimal.Decimal, the type the CSV and Excel routing loaders pass to
// entities.NewRouting.
func (c *Config) BaseLeadTime() decimal.Decimal {
	return decimal.NewFromFloat(c.Routing.BaseLeadTimeMinutes)
}

func (c *Config) Complexity() decimal.Decimal {
	return decimal.NewFromFloat(c.Routing.Complexity)
}

// SolverTimeLimit converts the configured seconds into a time.Duration.
func (c *Config) SolverTimeLimit() time.Duration {
	return time.Duration(c.Solver.TimeLimitSeconds) * time.Second
}
