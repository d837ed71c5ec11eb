// Package config implements the YAML config file parser
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/PowerDNS/recipientbackup/config/logger"
	"github.com/PowerDNS/recipientbackup/lmdbenv"
)

// DefaultPrefix is the default blob name prefix for backups
const DefaultPrefix = "recipients"

// DefaultTimeout is the default timeout for a single export or import.
// Backups are small, so this only protects against a stuck storage backend.
const DefaultTimeout = 30 * time.Minute

// Config is the config root object
type Config struct {
	LMDB    LMDB          `yaml:"lmdb"`
	Storage Storage       `yaml:"storage"`
	Backup  Backup        `yaml:"backup"`
	Restore Restore       `yaml:"restore"`
	Metrics Metrics       `yaml:"metrics"`
	Log     logger.Config `yaml:"log"`

	// Timeout for a single job, 0 to disable
	Timeout time.Duration `yaml:"timeout"`

	// Set to current version by main
	Version string `yaml:"-"`
}

// LMDB configures the LMDB database holding the recipient stores
type LMDB struct {
	Path    string          `yaml:"path"` // Path to directory holding data.mdb, or mdb file if NoSubdir
	Options lmdbenv.Options `yaml:"options"`
}

// Storage configures the simpleblob backend where backups are stored
type Storage struct {
	Type    string                 `yaml:"type"`    // Backend name, like "fs", "s3" or "memory"
	Options map[string]interface{} `yaml:"options"` // Backend specific options
}

// Backup configures exports
type Backup struct {
	Prefix        string `yaml:"prefix"`
	Instance      string `yaml:"instance"`        // Instance name used in backup names
	FailOnPartial bool   `yaml:"fail_on_partial"` // Do not store a backup if any recipient failed
}

// Restore configures imports
type Restore struct {
	Prefix       string `yaml:"prefix"`         // Prefix to find the newest backup, defaults to backup.prefix
	AbortOnError bool   `yaml:"abort_on_error"` // Roll back everything on the first failed frame
}

// Metrics configures the Prometheus textfile written after every job
type Metrics struct {
	Textfile string `yaml:"textfile"` // Path for the node_exporter textfile collector
}

// Check validates a Config instance
func (c Config) Check() error {
	if err := c.Log.Check(); err != nil {
		return err
	}
	if c.LMDB.Path == "" {
		return fmt.Errorf("lmdb.path: no path configured")
	}
	if c.LMDB.Options.FileMask > 0777 { // decimal 511
		return fmt.Errorf("lmdb.options.file_mask: too large value, possible use of decimal (%d) instead of octal (%#o)",
			c.LMDB.Options.FileMask, c.LMDB.Options.FileMask)
	}
	if c.LMDB.Options.DirMask > 0777 {
		return fmt.Errorf("lmdb.options.dir_mask: too large value, possible use of decimal (%d) instead of octal (%#o)",
			c.LMDB.Options.DirMask, c.LMDB.Options.DirMask)
	}
	if c.Storage.Type == "" {
		return fmt.Errorf("storage.type: no storage backend configured")
	}
	if c.Backup.Prefix == "" {
		return fmt.Errorf("backup.prefix: must not be empty")
	}
	if err := checkNamePart(c.Backup.Prefix); err != nil {
		return errors.Wrap(err, "backup.prefix")
	}
	if err := checkNamePart(c.Backup.Instance); err != nil {
		return errors.Wrap(err, "backup.instance")
	}
	if err := checkNamePart(c.Restore.Prefix); err != nil {
		return errors.Wrap(err, "restore.prefix")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout: must not be negative")
	}
	return nil
}

// checkNamePart rejects values that would make backup names unparsable
func checkNamePart(s string) error {
	if strings.Contains(s, "__") {
		return fmt.Errorf("must not contain '__': %q", s)
	}
	if strings.ContainsAny(s, "/ ") {
		return fmt.Errorf("must not contain slashes or spaces: %q", s)
	}
	return nil
}

// RestorePrefix returns the prefix used to find backups to restore
func (c Config) RestorePrefix() string {
	if c.Restore.Prefix != "" {
		return c.Restore.Prefix
	}
	return c.Backup.Prefix
}

// InstanceID returns the configured instance name, or the hostname
func (c Config) InstanceID() (string, error) {
	if c.Backup.Instance != "" {
		return c.Backup.Instance, nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "", errors.Wrap(err, "backup.instance not set and hostname unavailable")
	}
	return hostname, nil
}

// String returns the config as a YAML string
func (c Config) String() string {
	y, err := yaml.Marshal(c)
	if err != nil {
		logrus.Panicf("YAML marshal of config failed: %v", err) // Should never happen
	}
	return string(y)
}

// LoadYAML loads config from YAML. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAML(yamlContents []byte, expandEnv bool) error {
	if expandEnv {
		yamlContents = []byte(os.ExpandEnv(string(yamlContents)))
	}
	return yaml.UnmarshalStrict(yamlContents, c)
}

// LoadYAMLFile loads config from a YAML file. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAMLFile(fpath string, expandEnv bool) error {
	contents, err := os.ReadFile(fpath)
	if err != nil {
		return errors.Wrap(err, "open yaml file")
	}
	return c.LoadYAML(contents, expandEnv)
}

// Default returns a Config with default settings
func Default() Config {
	return Config{
		Log:     logger.DefaultConfig,
		Timeout: DefaultTimeout,
		Backup: Backup{
			Prefix: DefaultPrefix,
		},
	}
}
