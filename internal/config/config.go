package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. HMB_HOTMOCK_HOST.
const EnvPrefix = "HMB"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Hotmock HotmockConfig `mapstructure:"hotmock"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	GRPCPort        int           `mapstructure:"grpc_port"`
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HotmockConfig entspricht den Komponenten-Parametern des Boards
type HotmockConfig struct {
	SettingFile   string        `mapstructure:"setting_file"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	PollWindow    time.Duration `mapstructure:"poll_window"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	CycleInterval time.Duration `mapstructure:"cycle_interval"`
	// RequestTypes: Modus je REQUEST-Typ in der Reihenfolge AI, PI, TS, GS (0 raw, 1 processed)
	RequestTypes  []int         `mapstructure:"request_types"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load liest die Konfiguration. Ein leerer Pfad nutzt nur Defaults und Environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults setzen
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("hotmock.setting_file", "configs/board.yaml")
	v.SetDefault("hotmock.host", "127.0.0.1")
	v.SetDefault("hotmock.port", 8888)
	v.SetDefault("hotmock.dial_timeout", "3s")
	v.SetDefault("hotmock.poll_window", "1ms")
	v.SetDefault("hotmock.write_timeout", "100ms")
	v.SetDefault("hotmock.cycle_interval", "50ms")
	v.SetDefault("hotmock.request_types", []int{0, 0, 0, 0})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	// Environment Variables mit Prefix HMB_, Punkte werden zu Unterstrichen
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Hotmock.RequestTypes = padRequestTypes(config.Hotmock.RequestTypes)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// requestTypeCount ist die Anzahl der anfragbaren Typen (AI, PI, TS, GS)
const requestTypeCount = 4

func padRequestTypes(in []int) []int {
	out := make([]int, requestTypeCount)
	copy(out, in)
	if len(in) > requestTypeCount {
		out = append(out, in[requestTypeCount:]...)
	}
	return out
}

// Validate prüft Wertebereiche
func (c *Config) Validate() error {
	var errs []error

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort))
	}
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("server.grpc_port out of range: %d", c.Server.GRPCPort))
	}
	if c.Hotmock.Host == "" {
		errs = append(errs, errors.New("hotmock.host is required"))
	}
	if c.Hotmock.Port <= 0 || c.Hotmock.Port > 65535 {
		errs = append(errs, fmt.Errorf("hotmock.port out of range: %d", c.Hotmock.Port))
	}
	if c.Hotmock.CycleInterval <= 0 {
		errs = append(errs, fmt.Errorf("hotmock.cycle_interval must be positive: %s", c.Hotmock.CycleInterval))
	}
	if c.Hotmock.PollWindow <= 0 || c.Hotmock.PollWindow >= c.Hotmock.CycleInterval {
		errs = append(errs, fmt.Errorf("hotmock.poll_window must be positive and below cycle_interval: %s", c.Hotmock.PollWindow))
	}
	if len(c.Hotmock.RequestTypes) > requestTypeCount {
		errs = append(errs, fmt.Errorf("hotmock.request_types has %d entries, at most %d allowed",
			len(c.Hotmock.RequestTypes), requestTypeCount))
	}
	for i, rt := range c.Hotmock.RequestTypes {
		if rt != 0 && rt != 1 {
			errs = append(errs, fmt.Errorf("hotmock.request_types[%d] must be 0 or 1, got %d", i, rt))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
