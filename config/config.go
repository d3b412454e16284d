package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ridoystarlord/dupfix/cleaner"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = ".dupfix.yaml"

// Config is the decoded .dupfix.yaml.
type Config struct {
	Suffix      string        `yaml:"suffix"`
	ColumnTypes []string      `yaml:"column_types"`
	Cascade     []yamlRewrite `yaml:"cascade"`
	Terminators []string      `yaml:"terminators"`
	Include     []string      `yaml:"include"`
	Workers     int           `yaml:"workers"`
	Database    Database      `yaml:"database"`
}

type yamlRewrite struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Database holds the settings used by db-check.
type Database struct {
	Schemas []string      `yaml:"schemas"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	rules := cleaner.DefaultRules()
	cfg := &Config{
		Suffix:      rules.Suffix,
		ColumnTypes: rules.ColumnTypes,
		Terminators: rules.Terminators,
		Include:     []string{"*.cs"},
		Workers:     4,
		Database: Database{
			Schemas: []string{"public"},
			Timeout: 10 * time.Second,
		},
	}
	for _, rw := range rules.Rewrites {
		cfg.Cascade = append(cfg.Cascade, yamlRewrite{From: rw.From, To: rw.To})
	}
	return cfg
}

// Load reads the config at path. An empty path means DefaultFile, and a
// missing DefaultFile yields the defaults. An explicit path must exist.
// Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Rules converts the config into cleaner rules.
func (c *Config) Rules() cleaner.Rules {
	rules := cleaner.Rules{
		Suffix:      c.Suffix,
		ColumnTypes: c.ColumnTypes,
		Terminators: c.Terminators,
	}
	for _, rw := range c.Cascade {
		rules.Rewrites = append(rules.Rewrites, cleaner.Rewrite{From: rw.From, To: rw.To})
	}
	return rules
}

// Validate checks the cleaner rules and the scan and database settings.
func (c *Config) Validate() error {
	if err := c.Rules().Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if len(c.Database.Schemas) == 0 {
		return fmt.Errorf("database.schemas must list at least one schema")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database.timeout must be positive")
	}
	return nil
}

// Example is the file written by `dupfix init`.
const Example = `# dupfix configuration
#
# Columns whose name ends with this suffix are treated as the accidental
# duplicate of a relation that is already mapped once (CustomerId1 next to
# CustomerId).
suffix: Id1

# CLR types a duplicate column may be declared with in table.Column<T>.
column_types: [Guid, int, long]

# Cascading deletes are rewritten everywhere in the file.
cascade:
  - from: ReferentialAction.Cascade
    to: ReferentialAction.NoAction
  - from: DeleteBehavior.Cascade
    to: DeleteBehavior.NoAction

# Calls that start a new declaration in a model snapshot. A property
# statement that runs into one of these before its ';' is left alone and
# reported instead of being removed.
terminators:
  - Property
  - HasIndex
  - HasKey
  - HasOne
  - HasMany
  - ToTable
  - Navigation
  - OwnsOne
  - OwnsMany
  - HasData
  - HasDiscriminator
  - HasBaseType
  - Ignore

# File names picked up by 'dupfix scan' and 'dupfix watch'.
include: ["*.cs"]
workers: 4

# Used by 'dupfix db-check' (connection string comes from DATABASE_URL).
database:
  schemas: [public]
  timeout: 10s
`
