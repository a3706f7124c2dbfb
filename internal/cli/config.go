package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/storyflow/pkg/simulate"
	"github.com/matzehuels/storyflow/pkg/story"
)

// Config is the optional config file. Flags override file values, and file
// values override the defaults.
//
//	[server]
//	addr = ":8080"
//	cors_origins = ["http://localhost:5173"]
//	stories_dir = "./stories"
//
//	[cache]
//	redis_url = "redis://localhost:6379/0"
//	key_prefix = "storyflow:dev:"
//
//	[preview]
//	start_besitos = 50
//	start_role = "vip"
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Cache   CacheConfig   `toml:"cache"`
	Preview PreviewConfig `toml:"preview"`
}

// ServerConfig configures "storyflow serve".
type ServerConfig struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
	StoriesDir  string   `toml:"stories_dir"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	TTL      duration `toml:"ttl"`
	// KeyPrefix scopes keys when several deployments share one Redis.
	KeyPrefix string `toml:"key_prefix"`
}

// PreviewConfig is the reader state simulations start from.
type PreviewConfig struct {
	StartBesitos int    `toml:"start_besitos"`
	StartRole    string `toml:"start_role"`
}

// duration decodes TOML strings such as "12h".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Preview: PreviewConfig{
			StartBesitos: simulate.DefaultBesitos,
			StartRole:    string(story.RoleNormal),
		},
	}
}

// LoadConfig decodes the TOML file at path over [DefaultConfig].
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, keys[0].String())
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Preview.StartBesitos < 0 {
		return fmt.Errorf("preview.start_besitos must not be negative")
	}
	if !story.Role(c.Preview.StartRole).Known() {
		return fmt.Errorf("preview.start_role %q is not one of normal, vip, premium", c.Preview.StartRole)
	}
	return nil
}

// PreviewState is the reader state configured under [preview].
func (c Config) PreviewState() simulate.State {
	s := simulate.DefaultState()
	s.Besitos = c.Preview.StartBesitos
	s.Role = story.Role(c.Preview.StartRole)
	return s
}

// configPath returns the default config file location
// ($XDG_CONFIG_HOME/storyflow/config.toml).
func configPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
