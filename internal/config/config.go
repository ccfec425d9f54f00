package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Env     string        `yaml:"env"`     // Env is the current environment: local, development, production.
	Input   string        `yaml:"input"`   // Input is the path of the employees JSON file.
	Store   StoreConfig   `yaml:"store"`   // Store holds the destination database configuration.
	Import  ImportConfig  `yaml:"import"`  // Import tunes the import run.
	Metrics MetricsConfig `yaml:"metrics"` // Metrics holds the optional textfile output.
}

// StoreConfig selects and configures the destination store.
type StoreConfig struct {
	Driver   string         `yaml:"driver"` // Driver is either "sqlite" or "postgres".
	Path     string         `yaml:"path"`   // Path is the SQLite database file.
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`     // Host is the database server address.
	Port     string `yaml:"port"`     // Port is the database server port.
	User     string `yaml:"user"`     // User is the database user.
	Password string `yaml:"password"` // Password is the database user's password.
	Dbname   string `yaml:"db_name"`  // Dbname is the name of the database.
}

type ImportConfig struct {
	Clear         bool `yaml:"clear"`          // Clear deletes every existing row before the records are written.
	DryRun        bool `yaml:"dry_run"`        // DryRun rolls the transaction back instead of committing.
	ProgressEvery int  `yaml:"progress_every"` // ProgressEvery is the number of inserted rows between progress lines.
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // Textfile is where the registry is written after a run, empty disables it.
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
// The file is taken from path, or from CONFIG_PATH when path is empty; no file at all is fine.
// A .env file in the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	vpr := viper.New()
	setDefaults(vpr)

	if err := bindEnv(vpr); err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config file does not exist: %s", ErrInvalidConfig, path)
		}

		vpr.SetConfigFile(path)
		if err := vpr.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	cfg := &Config{
		Env:   vpr.GetString("env"),
		Input: vpr.GetString("input"),
		Store: StoreConfig{
			Driver: strings.ToLower(vpr.GetString("store.driver")),
			Path:   vpr.GetString("store.path"),
			Postgres: PostgresConfig{
				Host:     vpr.GetString("store.postgres.host"),
				Port:     vpr.GetString("store.postgres.port"),
				User:     vpr.GetString("store.postgres.user"),
				Password: vpr.GetString("store.postgres.password"),
				Dbname:   vpr.GetString("store.postgres.db_name"),
			},
		},
		Import: ImportConfig{
			Clear:         vpr.GetBool("import.clear"),
			DryRun:        vpr.GetBool("import.dry_run"),
			ProgressEvery: vpr.GetInt("import.progress_every"),
		},
		Metrics: MetricsConfig{
			Textfile: vpr.GetString("metrics.textfile"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad() *Config {
	cfg, err := Load("")
	if err != nil {
		panic("config error: " + err.Error())
	}

	return cfg
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("%w: input path is empty", ErrInvalidConfig)
	}
	if c.Import.ProgressEvery < 0 {
		return fmt.Errorf("%w: import.progress_every must not be negative", ErrInvalidConfig)
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is required for the sqlite driver", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.Store.Postgres.Host == "" || c.Store.Postgres.Dbname == "" {
			return fmt.Errorf("%w: store.postgres.host and store.postgres.db_name are required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	return nil
}

func setDefaults(vpr *viper.Viper) {
	defProgressEvery := 50

	vpr.SetDefault("env", "local")
	vpr.SetDefault("input", "public/employees.json")
	vpr.SetDefault("store.driver", DriverSQLite)
	vpr.SetDefault("store.path", "backend/employees.db")
	vpr.SetDefault("store.postgres.port", "5432")
	vpr.SetDefault("import.clear", true)
	vpr.SetDefault("import.dry_run", false)
	vpr.SetDefault("import.progress_every", defProgressEvery)
	vpr.SetDefault("metrics.textfile", "")
}

func bindEnv(vpr *viper.Viper) error {
	bindings := map[string]string{
		"env":                     "MNEMOSYNE_ENV",
		"input":                   "MNEMOSYNE_INPUT",
		"store.driver":            "DB_DRIVER",
		"store.path":              "DB_PATH",
		"store.postgres.host":     "DB_HOST",
		"store.postgres.port":     "DB_PORT",
		"store.postgres.user":     "DB_USERNAME",
		"store.postgres.password": "DB_PASSWORD",
		"store.postgres.db_name":  "DB_NAME",
		"import.clear":            "MNEMOSYNE_CLEAR",
		"import.dry_run":          "MNEMOSYNE_DRY_RUN",
		"import.progress_every":   "MNEMOSYNE_PROGRESS_EVERY",
		"metrics.textfile":        "MNEMOSYNE_METRICS_TEXTFILE",
	}

	for key, env := range bindings {
		if err := vpr.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}
