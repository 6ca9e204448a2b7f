package config

import (
	"os"
	"strings"
	"time"

	"dev.rubentxu.background-orchestrator/internal/adapters/logger"
	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/usecase"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvGRPCAddr         = "ORCHESTRATOR_GRPC_ADDR"
	EnvHTTPAddr         = "ORCHESTRATOR_HTTP_ADDR"
	EnvLogLevel         = "ORCHESTRATOR_LOG_LEVEL"
	EnvWorkerExecutable = "ORCHESTRATOR_WORKER_EXECUTABLE"
)

type Config struct {
	Orchestrator OrchestratorConfig       `yaml:"orchestrator"`
	Policy       PolicyConfig             `yaml:"policy"`
	Worker       WorkerConfig             `yaml:"worker"`
	Commands     map[string]CommandConfig `yaml:"commands"`
	Server       ServerConfig             `yaml:"server"`
	Logging      LoggingConfig            `yaml:"logging"`
}

type OrchestratorConfig struct {
	GracePeriod      time.Duration `yaml:"grace_period"`
	ShutdownGrace    time.Duration `yaml:"shutdown_grace"`
	SampleInterval   time.Duration `yaml:"sample_interval"`
	OutputLimitBytes int           `yaml:"output_limit_bytes"`
}

type PolicyConfig struct {
	BackgroundCommands []string `yaml:"background_commands"`
}

// WorkerConfig describes the default child invocation. An empty executable
// means the running binary.
type WorkerConfig struct {
	Executable string   `yaml:"executable"`
	Marker     string   `yaml:"marker"`
	Dir        string   `yaml:"dir"`
	Env        []string `yaml:"env"`
}

// CommandConfig maps one command to a dedicated executable.
type CommandConfig struct {
	Executable string   `yaml:"executable"`
	Args       []string `yaml:"args"`
}

type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() Config {
	return Config{
		Orchestrator: OrchestratorConfig{
			GracePeriod:      usecase.DefaultGracePeriod,
			ShutdownGrace:    usecase.DefaultShutdownGrace,
			SampleInterval:   usecase.DefaultSampleInterval,
			OutputLimitBytes: job.DefaultOutputLimit,
		},
		Policy: PolicyConfig{
			BackgroundCommands: usecase.DefaultBackgroundCommands(),
		},
		Worker: WorkerConfig{
			Marker: usecase.DefaultWorkerMarker,
		},
		Server: ServerConfig{
			GRPCAddr: ":50051",
			HTTPAddr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load returns the defaults overlaid by the YAML file at path (skipped when
// path is empty) and then by the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config %s", path)
		}
		if err := cfg.Decode(data); err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode overlays YAML onto c. Keys absent from data keep their current value.
func (c *Config) Decode(data []byte) error {
	return yaml.Unmarshal(data, c)
}

func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvGRPCAddr); ok {
		c.Server.GRPCAddr = v
	}
	if v, ok := lookup(EnvHTTPAddr); ok {
		c.Server.HTTPAddr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvWorkerExecutable); ok && v != "" {
		c.Worker.Executable = v
	}
}

func (c Config) Validate() error {
	o := c.Orchestrator
	switch {
	case o.GracePeriod < 0:
		return errors.Errorf("orchestrator.grace_period must not be negative, got %s", o.GracePeriod)
	case o.ShutdownGrace < 0:
		return errors.Errorf("orchestrator.shutdown_grace must not be negative, got %s", o.ShutdownGrace)
	case o.SampleInterval < 0:
		return errors.Errorf("orchestrator.sample_interval must not be negative, got %s", o.SampleInterval)
	case o.OutputLimitBytes <= 0:
		return errors.Errorf("orchestrator.output_limit_bytes must be positive, got %d", o.OutputLimitBytes)
	case strings.TrimSpace(c.Worker.Marker) == "":
		return errors.New("worker.marker must not be empty")
	}
	for name, cmd := range c.Commands {
		if strings.TrimSpace(cmd.Executable) == "" {
			return errors.Errorf("commands.%s.executable must not be empty", name)
		}
	}
	return nil
}

// UsecaseConfig converts the file layout into the orchestrator config.
func (c Config) UsecaseConfig() usecase.Config {
	var commands map[string]usecase.CommandTarget
	if len(c.Commands) > 0 {
		commands = make(map[string]usecase.CommandTarget, len(c.Commands))
		for name, cmd := range c.Commands {
			commands[name] = usecase.CommandTarget{Executable: cmd.Executable, Args: cmd.Args}
		}
	}
	return usecase.Config{
		BackgroundCommands: c.Policy.BackgroundCommands,
		GracePeriod:        c.Orchestrator.GracePeriod,
		ShutdownGrace:      c.Orchestrator.ShutdownGrace,
		SampleInterval:     c.Orchestrator.SampleInterval,
		WorkerExecutable:   c.Worker.Executable,
		WorkerMarker:       c.Worker.Marker,
		WorkerEnv:          c.Worker.Env,
		WorkerDir:          c.Worker.Dir,
		Commands:           commands,
	}
}

func (c Config) LoggerOptions() logger.Options {
	return logger.Options{Level: c.Logging.Level, Development: c.Logging.Development}
}
