/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"fmt"
	"time"

	"github.com/acronis/go-appkit/config"
	"github.com/acronis/go-appkit/log"

	"github.com/acronis/go-carpet/change"
	"github.com/acronis/go-carpet/connector"
)

const cfgDefaultKeyPrefix = "changeSet"

const (
	cfgKeyDevMode             = "devMode"
	cfgKeyPath                = "path"
	cfgKeyCreateTable         = "createTable"
	cfgKeyTableName           = "tableName"
	cfgKeyOrdering            = "ordering"
	cfgKeyEagerBackfillCommit = "eagerBackfillCommit"
	cfgKeyLockEnabled         = "lock.enabled"
	cfgKeyLockKey             = "lock.key"
	cfgKeyLockTTL             = "lock.ttl"
	cfgKeyLockWait            = "lock.wait"
)

// Version orderings available in configuration.
const (
	OrderingDecimal  = "decimal"
	OrderingSemantic = "semantic"
)

// Default values of the change set configuration.
const (
	DefaultLockKey  = "go-carpet"
	DefaultLockTTL  = time.Minute
	DefaultLockWait = 5 * time.Minute
)

// LockConfig configures serialization of runs between deployers.
type LockConfig struct {
	Enabled bool                `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Key     string              `mapstructure:"key" yaml:"key" json:"key"`
	TTL     config.TimeDuration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
	Wait    config.TimeDuration `mapstructure:"wait" yaml:"wait" json:"wait"`
}

// Config represents a set of parameters of change set execution.
type Config struct {
	DevMode             bool       `mapstructure:"devMode" yaml:"devMode" json:"devMode"`
	Path                string     `mapstructure:"path" yaml:"path" json:"path"`
	CreateTable         bool       `mapstructure:"createTable" yaml:"createTable" json:"createTable"`
	TableName           string     `mapstructure:"tableName" yaml:"tableName" json:"tableName"`
	Ordering            string     `mapstructure:"ordering" yaml:"ordering" json:"ordering"`
	EagerBackfillCommit bool       `mapstructure:"eagerBackfillCommit" yaml:"eagerBackfillCommit" json:"eagerBackfillCommit"`
	Lock                LockConfig `mapstructure:"lock" yaml:"lock" json:"lock"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*Config)

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(c *Config) {
		c.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config with default values.
func NewConfig(options ...ConfigOption) *Config {
	c := &Config{
		CreateTable: true,
		TableName:   connector.DefaultTableName,
		Ordering:    OrderingDecimal,
		Lock: LockConfig{
			Key:  DefaultLockKey,
			TTL:  config.TimeDuration(DefaultLockTTL),
			Wait: config.TimeDuration(DefaultLockWait),
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyDevMode, false)
	dp.SetDefault(cfgKeyCreateTable, true)
	dp.SetDefault(cfgKeyTableName, connector.DefaultTableName)
	dp.SetDefault(cfgKeyOrdering, OrderingDecimal)
	dp.SetDefault(cfgKeyEagerBackfillCommit, false)
	dp.SetDefault(cfgKeyLockEnabled, false)
	dp.SetDefault(cfgKeyLockKey, DefaultLockKey)
	dp.SetDefault(cfgKeyLockTTL, DefaultLockTTL)
	dp.SetDefault(cfgKeyLockWait, DefaultLockWait)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.DevMode, err = dp.GetBool(cfgKeyDevMode); err != nil {
		return err
	}
	if c.Path, err = dp.GetString(cfgKeyPath); err != nil {
		return err
	}
	if c.CreateTable, err = dp.GetBool(cfgKeyCreateTable); err != nil {
		return err
	}
	if c.TableName, err = dp.GetString(cfgKeyTableName); err != nil {
		return err
	}
	if c.TableName == "" {
		return dp.WrapKeyErr(cfgKeyTableName, fmt.Errorf("cannot be empty"))
	}
	if c.Ordering, err = dp.GetStringFromSet(cfgKeyOrdering, []string{OrderingDecimal, OrderingSemantic}, false); err != nil {
		return err
	}
	if c.EagerBackfillCommit, err = dp.GetBool(cfgKeyEagerBackfillCommit); err != nil {
		return err
	}
	return c.setLockConfig(dp)
}

func (c *Config) setLockConfig(dp config.DataProvider) error {
	var err error
	if c.Lock.Enabled, err = dp.GetBool(cfgKeyLockEnabled); err != nil {
		return err
	}
	if c.Lock.Key, err = dp.GetString(cfgKeyLockKey); err != nil {
		return err
	}
	if c.Lock.Enabled && c.Lock.Key == "" {
		return dp.WrapKeyErr(cfgKeyLockKey, fmt.Errorf("cannot be empty when lock is enabled"))
	}
	ttl, err := dp.GetDuration(cfgKeyLockTTL)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return dp.WrapKeyErr(cfgKeyLockTTL, fmt.Errorf("must be positive"))
	}
	c.Lock.TTL = config.TimeDuration(ttl)
	wait, err := dp.GetDuration(cfgKeyLockWait)
	if err != nil {
		return err
	}
	if wait < 0 {
		return dp.WrapKeyErr(cfgKeyLockWait, fmt.Errorf("cannot be negative"))
	}
	c.Lock.Wait = config.TimeDuration(wait)
	return nil
}

// VersionOrdering returns the change.Ordering selected in the config.
func (c *Config) VersionOrdering() change.Ordering {
	if c.Ordering == OrderingSemantic {
		return change.SemanticOrdering
	}
	return change.DecimalOrdering
}

// ConnectorOptions returns the connector options derived from the config.
func (c *Config) ConnectorOptions() []connector.Option {
	return []connector.Option{
		connector.WithTableName(c.TableName),
		connector.WithEagerBackfillCommit(c.EagerBackfillCommit),
	}
}

// NewEngineFromConfig creates a new Engine configured by cfg. Options passed explicitly take precedence.
// The lock is not created from the config since it needs a database handle, see distrlock.NewDBLocker.
func NewEngineFromConfig(cfg *Config, provider connector.Provider, logger log.FieldLogger, opts ...Option) (*Engine, error) {
	cfgOpts := []Option{
		WithDevMode(cfg.DevMode),
		WithCreateTable(cfg.CreateTable),
		WithOrdering(cfg.VersionOrdering()),
	}
	if cfg.Path != "" {
		cfgOpts = append(cfgOpts, WithChangeSetPath(cfg.Path))
	}
	return NewEngine(provider, logger, append(cfgOpts, opts...)...)
}
