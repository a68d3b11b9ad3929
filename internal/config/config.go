// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Agent      AgentConfig      `mapstructure:"agent" yaml:"agent"`
	Perception PerceptionConfig `mapstructure:"perception" yaml:"perception"`
	Correlate  CorrelateConfig  `mapstructure:"correlate" yaml:"correlate"`
	Executor   ExecutorConfig   `mapstructure:"executor" yaml:"executor"`
	// Run gets its marching orders from CLI flags, not the config file.
	Run RunConfig `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMConfig defines the connection settings for the Gemini planning and
// vision oracles. Both share the same API key and request pacing.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Model       string        `mapstructure:"model" yaml:"model"`
	VisionModel string        `mapstructure:"vision_model" yaml:"vision_model"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float32       `mapstructure:"top_p" yaml:"top_p"`
	TopK        int           `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// MinRequestInterval is the cooperative floor between oracle calls.
	MinRequestInterval time.Duration `mapstructure:"min_request_interval" yaml:"min_request_interval"`
}

// AgentConfig tunes the control loop budgets and confidence gates.
type AgentConfig struct {
	MaxIterations      int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	MaxErrors          int           `mapstructure:"max_errors" yaml:"max_errors"`
	MinConfidenceAbort float64       `mapstructure:"min_confidence_abort" yaml:"min_confidence_abort"`
	MinConfidenceWarn  float64       `mapstructure:"min_confidence_warn" yaml:"min_confidence_warn"`
	GoalConfidence     float64       `mapstructure:"goal_confidence" yaml:"goal_confidence"`
	IterationPause     time.Duration `mapstructure:"iteration_pause" yaml:"iteration_pause"`
}

// PerceptionConfig configures accessibility discovery.
type PerceptionConfig struct {
	// LaunchWait* control how long to wait for an application to present
	// UI after a launch, bucketed by application weight class.
	LaunchWaitBrowser time.Duration `mapstructure:"launch_wait_browser" yaml:"launch_wait_browser"`
	LaunchWaitHeavy   time.Duration `mapstructure:"launch_wait_heavy" yaml:"launch_wait_heavy"`
	LaunchWaitLight   time.Duration `mapstructure:"launch_wait_light" yaml:"launch_wait_light"`
	LaunchWaitDefault time.Duration `mapstructure:"launch_wait_default" yaml:"launch_wait_default"`
}

// CorrelateConfig tunes the accessibility/visual fusion scorer.
type CorrelateConfig struct {
	// ProximityThreshold is the max pixel distance for the spatial bonus.
	ProximityThreshold float64 `mapstructure:"proximity_threshold" yaml:"proximity_threshold"`
}

// ExecutorConfig tunes action dispatch pacing.
type ExecutorConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// RunConfig holds settings populated from CLI flags for a specific run.
type RunConfig struct {
	Goal   string
	App    string
	Output string
	NoSave bool
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "axdriver")
	v.SetDefault("logger.log_file", "axdriver.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- LLM --
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.vision_model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.min_request_interval", "5s")

	// -- Agent --
	v.SetDefault("agent.max_iterations", 10)
	v.SetDefault("agent.max_errors", 5)
	v.SetDefault("agent.min_confidence_abort", 0.1)
	v.SetDefault("agent.min_confidence_warn", 0.3)
	v.SetDefault("agent.goal_confidence", 0.9)
	v.SetDefault("agent.iteration_pause", "1s")

	// -- Perception --
	v.SetDefault("perception.launch_wait_browser", "5s")
	v.SetDefault("perception.launch_wait_heavy", "8s")
	v.SetDefault("perception.launch_wait_light", "2s")
	v.SetDefault("perception.launch_wait_default", "3s")

	// -- Correlate --
	v.SetDefault("correlate.proximity_threshold", 50.0)

	// -- Executor --
	v.SetDefault("executor.settle_delay", "500ms")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("llm.api_key", "AXDRIVER_LLM_API_KEY", "GEMINI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the key if Unmarshal didn't pick it up.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be a positive integer")
	}
	if c.Agent.MaxErrors <= 0 {
		return fmt.Errorf("agent.max_errors must be a positive integer")
	}
	if c.Agent.MinConfidenceAbort < 0.0 || c.Agent.MinConfidenceAbort > 1.0 {
		return fmt.Errorf("agent.min_confidence_abort must be between 0.0 and 1.0")
	}
	if c.Agent.MinConfidenceWarn < c.Agent.MinConfidenceAbort || c.Agent.MinConfidenceWarn > 1.0 {
		return fmt.Errorf("agent.min_confidence_warn must be between min_confidence_abort and 1.0")
	}
	if c.Agent.GoalConfidence <= 0.0 || c.Agent.GoalConfidence > 1.0 {
		return fmt.Errorf("agent.goal_confidence must be between 0.0 and 1.0")
	}
	if c.Correlate.ProximityThreshold <= 0 {
		return fmt.Errorf("correlate.proximity_threshold must be a positive number")
	}
	if c.LLM.MinRequestInterval < 0 {
		return fmt.Errorf("llm.min_request_interval cannot be negative")
	}
	return nil
}
