package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "GREETD_PORT", "GREETD_HOST", "GREETD_VARIANT", "GREETD_GREETING"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigHealthDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadConfig(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, variantHealth, cfg.Variant)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	assert.True(t, cfg.Health)
	assert.Equal(t, "<h3>Node CI-CD *******************</h3>", cfg.Greeting)
	assert.Equal(t, time.Duration(0), cfg.ShutdownDelay)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoadConfigHealthReadsPORT(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "5000")

	cfg, err := loadConfig(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
}

func TestLoadConfigEmptyPORTFallsBack(t *testing.T) {
	clearEnv(t)

	cfg, err := loadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
}

func TestLoadConfigBasicIgnoresPORT(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")

	v := viper.New()
	v.Set("variant", variantBasic)

	cfg, err := loadConfig(v, "")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "", cfg.Host)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.False(t, cfg.Health)
	assert.Equal(t, "<h3>Node CI-CD</h3>", cfg.Greeting)
}

func TestLoadConfigBasicPrefixedPortOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("GREETD_PORT", "4100")

	v := viper.New()
	v.Set("variant", variantBasic)

	cfg, err := loadConfig(v, "")
	require.NoError(t, err)
	assert.Equal(t, 4100, cfg.Port)
	assert.Equal(t, ":4100", cfg.Addr())
}

func TestLoadConfigPrefixedEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GREETD_VARIANT", "basic")
	t.Setenv("GREETD_GREETING", "<h3>v42</h3>")
	t.Setenv("GREETD_SHUTDOWN_DELAY", "2s")

	cfg, err := loadConfig(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, variantBasic, cfg.Variant)
	assert.Equal(t, "<h3>v42</h3>", cfg.Greeting)
	assert.Equal(t, 2*time.Second, cfg.ShutdownDelay)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "greetd.yaml")
	content := `variant: basic
port: 4000
host: 127.0.0.1
health: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := loadConfig(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, variantBasic, cfg.Variant)
	assert.Equal(t, "127.0.0.1:4000", cfg.Addr())
	assert.True(t, cfg.Health)
	assert.Equal(t, "<h3>Node CI-CD</h3>", cfg.Greeting)
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non numeric PORT", map[string]string{"PORT": "abc"}},
		{"zero PORT", map[string]string{"PORT": "0"}},
		{"PORT out of range", map[string]string{"PORT": "70000"}},
		{"bad host", map[string]string{"GREETD_HOST": "not a host"}},
		{"unknown variant", map[string]string{"GREETD_VARIANT": "fancy"}},
		{"negative delay", map[string]string{"GREETD_SHUTDOWN_DELAY": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := loadConfig(viper.New(), "")
			assert.Error(t, err)
		})
	}
}
