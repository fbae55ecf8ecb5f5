package cmd

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	variantBasic  = "basic"
	variantHealth = "health"

	defaultVariant = variantHealth
	defaultPort    = 3000
)

// variantPreset holds the per-variant defaults. Everything in here can
// still be overridden by a config file or GREETD_* environment variables.
type variantPreset struct {
	Greeting string
	Host     string
	Health   bool
	// PortFromEnv makes the unprefixed PORT variable authoritative for the
	// listening port, the way a process supervisor injects it.
	PortFromEnv bool
}

var variantPresets = map[string]variantPreset{
	variantBasic: {
		Greeting: "<h3>Node CI-CD</h3>",
	},
	variantHealth: {
		Greeting:    "<h3>Node CI-CD *******************</h3>",
		Host:        "0.0.0.0",
		Health:      true,
		PortFromEnv: true,
	},
}

type config struct {
	Variant         string        `mapstructure:"variant" validate:"oneof=basic health"`
	Host            string        `mapstructure:"host" validate:"omitempty,ip"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	Greeting        string        `mapstructure:"greeting" validate:"required"`
	Health          bool          `mapstructure:"health"`
	ShutdownDelay   time.Duration `mapstructure:"shutdown_delay" validate:"min=0s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0s"`
	Debug           bool          `mapstructure:"debug"`
}

// Addr returns the listen address. An empty host binds every interface.
func (c config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// loadConfig resolves the configuration once, at process entry. Sources
// by decreasing priority: explicit sets and bound flags, environment,
// config file, variant preset.
func loadConfig(v *viper.Viper, cfgFile string) (config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.SetEnvPrefix("GREETD")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	}

	variant := v.GetString("variant")
	if variant == "" {
		variant = defaultVariant
	}

	preset, ok := variantPresets[variant]
	if !ok {
		return config{}, fmt.Errorf("unknown variant %q", variant)
	}

	v.SetDefault("variant", variant)
	v.SetDefault("port", defaultPort)
	v.SetDefault("host", preset.Host)
	v.SetDefault("greeting", preset.Greeting)
	v.SetDefault("health", preset.Health)
	v.SetDefault("shutdown_delay", time.Duration(0))
	v.SetDefault("shutdown_timeout", 3*time.Second)
	v.SetDefault("debug", false)

	if preset.PortFromEnv {
		if err := v.BindEnv("port", "PORT"); err != nil {
			return config{}, fmt.Errorf("binding PORT: %w", err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
