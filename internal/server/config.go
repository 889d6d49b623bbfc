package server

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"SpiritTalk/internal/game"
)

// EnvPrefix marks environment variables read into the config.
const EnvPrefix = "SPIRITTALK_"

// DefaultConfigPaths are tried in order when no config file is named.
var DefaultConfigPaths = []string{"./spirittalk.toml", "$HOME/.spirittalk.toml"}

type AppConfig struct {
	Server struct {
		Addr       string  `koanf:"addr"`
		TickHz     float64 `koanf:"tick_hz"`
		MaxPlayers int     `koanf:"max_players"`
	} `koanf:"server"`
	Graph struct {
		Path     string `koanf:"path"`
		Watch    bool   `koanf:"watch"`
		MaxChain int    `koanf:"max_chain"`
	} `koanf:"graph"`
	Audio struct {
		Enabled             bool   `koanf:"enabled"`
		DefaultCollectSound string `koanf:"default_collect_sound"`
	} `koanf:"audio"`
	Limits struct {
		RPS   float64 `koanf:"rps"`
		Burst int     `koanf:"burst"`
	} `koanf:"limits"`
	Log struct {
		Level  string `koanf:"level"`
		Pretty bool   `koanf:"pretty"`
	} `koanf:"log"`
	Metrics struct {
		Enabled bool `koanf:"enabled"`
	} `koanf:"metrics"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.addr":                 ":8080",
		"server.tick_hz":              game.SimHz,
		"server.max_players":          game.RoomMaxPlayers,
		"graph.path":                  "",
		"graph.watch":                 false,
		"graph.max_chain":             0,
		"audio.enabled":               false,
		"audio.default_collect_sound": game.DefaultCollectSound,
		"limits.rps":                  20.0,
		"limits.burst":                40,
		"log.level":                   "info",
		"log.pretty":                  false,
		"metrics.enabled":             true,
	}
}

func DefaultAppConfig() AppConfig {
	cfg, _ := load(nil, false)
	return cfg
}

// LoadConfig reads .env, then defaults, the TOML file and SPIRITTALK_*
// variables, later sources winning. An empty path tries DefaultConfigPaths.
func LoadConfig(path string) (AppConfig, error) {
	_ = godotenv.Load(".env")

	var paths []string
	if path != "" {
		paths = []string{path}
	} else {
		for _, p := range DefaultConfigPaths {
			p = os.ExpandEnv(p)
			if _, err := os.Stat(p); err == nil {
				paths = []string{p}
				break
			}
		}
	}
	return load(paths, true)
}

func load(paths []string, withEnv bool) (AppConfig, error) {
	var cfg AppConfig
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}
	for _, p := range paths {
		if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
			return cfg, fmt.Errorf("read config %q: %w", p, err)
		}
	}
	if withEnv {
		// SPIRITTALK_GRAPH_MAX_CHAIN -> graph.max_chain
		err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
			return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
		}), nil)
		if err != nil {
			return cfg, fmt.Errorf("read environment: %w", err)
		}
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return sanitize(cfg), nil
}

func sanitize(cfg AppConfig) AppConfig {
	if cfg.Server.TickHz <= 0 {
		cfg.Server.TickHz = game.SimHz
	}
	if cfg.Server.MaxPlayers <= 0 {
		cfg.Server.MaxPlayers = game.RoomMaxPlayers
	}
	if cfg.Limits.RPS <= 0 {
		cfg.Limits.RPS = 20
	}
	if cfg.Limits.Burst <= 0 {
		cfg.Limits.Burst = 1
	}
	if cfg.Audio.DefaultCollectSound == "" {
		cfg.Audio.DefaultCollectSound = game.DefaultCollectSound
	}
	return cfg
}

// Overrides are command-line values that win over every config source.
type Overrides struct {
	Addr      *string
	TickHz    *float64
	GraphPath *string
	Watch     *bool
	MaxChain  *int
	Audio     *bool
	LogLevel  *string
	LogPretty *bool
}

func (o Overrides) apply(base AppConfig) AppConfig {
	if o.Addr != nil {
		base.Server.Addr = *o.Addr
	}
	if o.TickHz != nil {
		base.Server.TickHz = *o.TickHz
	}
	if o.GraphPath != nil {
		base.Graph.Path = *o.GraphPath
	}
	if o.Watch != nil {
		base.Graph.Watch = *o.Watch
	}
	if o.MaxChain != nil {
		base.Graph.MaxChain = *o.MaxChain
	}
	if o.Audio != nil {
		base.Audio.Enabled = *o.Audio
	}
	if o.LogLevel != nil {
		base.Log.Level = *o.LogLevel
	}
	if o.LogPretty != nil {
		base.Log.Pretty = *o.LogPretty
	}
	return sanitize(base)
}

// WithOverrides returns cfg with every set override applied.
func (cfg AppConfig) WithOverrides(o Overrides) AppConfig {
	return o.apply(cfg)
}

// RoomOptions derives the per-room settings.
func (cfg AppConfig) RoomOptions() game.RoomOptions {
	return game.RoomOptions{
		DefaultCollectSound: cfg.Audio.DefaultCollectSound,
		MaxChain:            cfg.Graph.MaxChain,
		MaxPlayers:          cfg.Server.MaxPlayers,
	}
}
