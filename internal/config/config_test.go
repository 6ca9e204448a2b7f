package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
orchestrator:
  grace_period: 2s
  sample_interval: 0s
policy:
  background_commands: [store, publish]
worker:
  executable: /usr/local/bin/waltodo
  env: ["WALRUS_NETWORK=testnet"]
commands:
  publish:
    executable: /usr/bin/site-builder
    args: [publish]
server:
  http_addr: "127.0.0.1:9090"
logging:
  level: debug
  development: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orchestrator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.Orchestrator.GracePeriod)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.SampleInterval)
	assert.Equal(t, 1<<20, cfg.Orchestrator.OutputLimitBytes)
	assert.Equal(t, ":50051", cfg.Server.GRPCAddr)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, usecase.DefaultBackgroundCommands(), cfg.Policy.BackgroundCommands)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Orchestrator.GracePeriod)
	assert.Equal(t, time.Duration(0), cfg.Orchestrator.SampleInterval)
	assert.Equal(t, usecase.DefaultShutdownGrace, cfg.Orchestrator.ShutdownGrace, "absent keys keep defaults")
	assert.Equal(t, []string{"store", "publish"}, cfg.Policy.BackgroundCommands)
	assert.Equal(t, usecase.DefaultWorkerMarker, cfg.Worker.Marker)
	assert.Equal(t, ":50051", cfg.Server.GRPCAddr)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.HTTPAddr)

	uc := cfg.UsecaseConfig()
	assert.Equal(t, "/usr/local/bin/waltodo", uc.WorkerExecutable)
	assert.Equal(t, []string{"WALRUS_NETWORK=testnet"}, uc.WorkerEnv)
	assert.Equal(t, usecase.CommandTarget{Executable: "/usr/bin/site-builder", Args: []string{"publish"}}, uc.Commands["publish"])

	opts := cfg.LoggerOptions()
	assert.Equal(t, "debug", opts.Level)
	assert.True(t, opts.Development)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "orchestrator: [not, a, map]"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "orchestrator:\n  grace_period: soon\n"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvGRPCAddr:         "127.0.0.1:6000",
		EnvHTTPAddr:         "",
		EnvLogLevel:         "warn",
		EnvWorkerExecutable: "/opt/worker",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "127.0.0.1:6000", cfg.Server.GRPCAddr)
	assert.Equal(t, "", cfg.Server.HTTPAddr, "an empty address disables the listener")
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/opt/worker", cfg.Worker.Executable)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"negative grace":    func(c *Config) { c.Orchestrator.GracePeriod = -time.Second },
		"negative shutdown": func(c *Config) { c.Orchestrator.ShutdownGrace = -time.Second },
		"negative interval": func(c *Config) { c.Orchestrator.SampleInterval = -time.Second },
		"zero output limit": func(c *Config) { c.Orchestrator.OutputLimitBytes = 0 },
		"empty marker":      func(c *Config) { c.Worker.Marker = " " },
		"command without executable": func(c *Config) {
			c.Commands = map[string]CommandConfig{"deploy": {Args: []string{"x"}}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
