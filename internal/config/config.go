package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Location  LocationConfig  `yaml:"location"`
	Map       MapConfig       `yaml:"map"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	MCP       MCPConfig       `yaml:"mcp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	// Backend is one of sqlite, postgres, redis, badger, memory.
	Backend  string         `yaml:"backend"`
	Key      string         `yaml:"key"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres DatabaseConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Badger   BadgerConfig   `yaml:"badger"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type DatabaseConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	SSLMode    string `yaml:"sslmode"`
	Migrations string `yaml:"migrations"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BadgerConfig struct {
	Dir string `yaml:"dir"`
}

// LocationConfig selects where the map's current position comes from:
// "browser" waits for the page to report navigator.geolocation, "static"
// uses Lat/Lng, "none" behaves as a denied lookup.
type LocationConfig struct {
	Source string  `yaml:"source"`
	Lat    float64 `yaml:"lat"`
	Lng    float64 `yaml:"lng"`
}

type MapConfig struct {
	Zoom        int    `yaml:"zoom"`
	TileURL     string `yaml:"tile_url"`
	Attribution string `yaml:"attribution"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Defaults returns a config usable without a file: sqlite storage next to
// the binary, browser geolocation and the OpenStreetMap HOT tiles.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		Storage: StorageConfig{
			Backend: "sqlite",
			Key:     "workouts",
			SQLite:  SQLiteConfig{Path: "data/mapty.db"},
			Postgres: DatabaseConfig{
				Port:       5432,
				Migrations: "migrations",
			},
			Badger: BadgerConfig{Dir: "data/badger"},
		},
		Location: LocationConfig{Source: "browser"},
		Map: MapConfig{
			Zoom:        13,
			TileURL:     "https://{s}.tile.openstreetmap.fr/hot/{z}/{x}/{y}.png",
			Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		},
		Tailscale: TailscaleConfig{Hostname: "mapty", StateDir: "data/tsnet"},
	}
}

// Load reads config from a YAML file over Defaults, then applies environment
// variable overrides. Env vars use the prefix MAPTY_:
//
//	MAPTY_SERVER_HOST, MAPTY_SERVER_PORT,
//	MAPTY_STORAGE_BACKEND, MAPTY_STORAGE_KEY, MAPTY_SQLITE_PATH,
//	MAPTY_DB_HOST, MAPTY_DB_PORT, MAPTY_DB_NAME, MAPTY_DB_USER,
//	MAPTY_DB_PASSWORD, MAPTY_DB_SSLMODE,
//	MAPTY_REDIS_ADDR, MAPTY_REDIS_PASSWORD, MAPTY_BADGER_DIR,
//	MAPTY_LOCATION_SOURCE, MAPTY_LOCATION_LAT, MAPTY_LOCATION_LNG,
//	MAPTY_TAILSCALE_ENABLED, MAPTY_MCP_ENABLED
//
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setFloat := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("MAPTY_SERVER_HOST", &cfg.Server.Host)
	setInt("MAPTY_SERVER_PORT", &cfg.Server.Port)

	setString("MAPTY_STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("MAPTY_STORAGE_KEY", &cfg.Storage.Key)
	setString("MAPTY_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	setString("MAPTY_DB_HOST", &cfg.Storage.Postgres.Host)
	setInt("MAPTY_DB_PORT", &cfg.Storage.Postgres.Port)
	setString("MAPTY_DB_NAME", &cfg.Storage.Postgres.Name)
	setString("MAPTY_DB_USER", &cfg.Storage.Postgres.User)
	setString("MAPTY_DB_PASSWORD", &cfg.Storage.Postgres.Password)
	setString("MAPTY_DB_SSLMODE", &cfg.Storage.Postgres.SSLMode)
	setString("MAPTY_REDIS_ADDR", &cfg.Storage.Redis.Addr)
	setString("MAPTY_REDIS_PASSWORD", &cfg.Storage.Redis.Password)
	setString("MAPTY_BADGER_DIR", &cfg.Storage.Badger.Dir)

	setString("MAPTY_LOCATION_SOURCE", &cfg.Location.Source)
	setFloat("MAPTY_LOCATION_LAT", &cfg.Location.Lat)
	setFloat("MAPTY_LOCATION_LNG", &cfg.Location.Lng)

	setBool("MAPTY_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled)
	setBool("MAPTY_MCP_ENABLED", &cfg.MCP.Enabled)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key is required")
	}

	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required")
		}
	case "postgres":
		pg := c.Storage.Postgres
		if pg.Host == "" {
			return fmt.Errorf("storage.postgres.host is required")
		}
		if pg.Port == 0 {
			return fmt.Errorf("storage.postgres.port is required")
		}
		if pg.Name == "" {
			return fmt.Errorf("storage.postgres.name is required")
		}
		if pg.User == "" {
			return fmt.Errorf("storage.postgres.user is required")
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required")
		}
	case "badger":
		if c.Storage.Badger.Dir == "" {
			return fmt.Errorf("storage.badger.dir is required")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.backend %q is not one of sqlite, postgres, redis, badger, memory", c.Storage.Backend)
	}

	switch c.Location.Source {
	case "browser", "none":
	case "static":
		if c.Location.Lat < -90 || c.Location.Lat > 90 || c.Location.Lng < -180 || c.Location.Lng > 180 {
			return fmt.Errorf("location lat/lng out of range")
		}
	default:
		return fmt.Errorf("location.source %q is not one of browser, static, none", c.Location.Source)
	}

	if c.Map.Zoom < 1 || c.Map.Zoom > 19 {
		return fmt.Errorf("map.zoom must be between 1 and 19")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
