// Package config loads posegate settings from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/posegate/internal/actuator"
	"github.com/ayusman/posegate/internal/capture"
	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/pose"
	"github.com/ayusman/posegate/internal/remo"
)

// EnvPrefix prefixes every posegate environment variable.
const EnvPrefix = "POSEGATE_"

// Config is the full application configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Camera    capture.Config  `yaml:"camera"`
	Motion    MotionConfig    `yaml:"motion"`
	Estimator EstimatorConfig `yaml:"estimator"`
	Actuation ActuationConfig `yaml:"actuation"`
	Remo      RemoConfig      `yaml:"remo"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
}

// EngineConfig holds the debounce parameters, fixed per session.
type EngineConfig struct {
	Capacity  int     `yaml:"capacity"`
	Threshold float64 `yaml:"threshold"`
	Share     float64 `yaml:"share"`
}

// MotionConfig controls capture pacing.
type MotionConfig struct {
	Threshold   float64       `yaml:"threshold"`
	IdleFPS     int           `yaml:"idle_fps"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// EstimatorConfig locates the MoveNet service.
type EstimatorConfig struct {
	Script      string        `yaml:"script"`
	Python      string        `yaml:"python"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	// Mock replaces MoveNet with an estimator that always sees an idle pose.
	Mock bool `yaml:"mock"`
}

// ActuationConfig controls how fired events reach actuators.
type ActuationConfig struct {
	QueueSize     int           `yaml:"queue_size"`
	Cooldown      time.Duration `yaml:"cooldown"`
	Timeout       time.Duration `yaml:"timeout"`
	PluginDir     string        `yaml:"plugin_dir"`
	PluginTimeout time.Duration `yaml:"plugin_timeout"`
}

// RemoConfig configures direct Nature Remo actuation. It is active when
// both Token and ApplianceID are set.
type RemoConfig struct {
	BaseURL     string   `yaml:"base_url"`
	Token       string   `yaml:"token"`
	ApplianceID string   `yaml:"appliance_id"`
	Button      string   `yaml:"button"`
	Labels      []string `yaml:"labels"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig sets the log level and colouring.
type LogConfig struct {
	Level   string `yaml:"level"`
	NoColor bool   `yaml:"no_color"`
}

// DataDir returns ~/.posegate, or .posegate when the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".posegate"
	}
	return filepath.Join(home, ".posegate")
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := DataDir()
	engine := gesture.DefaultConfig()
	return Config{
		Engine: EngineConfig{
			Capacity:  engine.Capacity,
			Threshold: engine.Threshold,
			Share:     engine.Share,
		},
		Camera: capture.DefaultConfig(),
		Motion: MotionConfig{
			Threshold:   capture.DefaultMotionThreshold,
			IdleFPS:     capture.DefaultIdleFPS,
			IdleTimeout: capture.DefaultIdleTimeout,
		},
		Estimator: EstimatorConfig{
			IdleTimeout: time.Duration(pose.DefaultConfig().IdleTimeoutSec) * time.Second,
		},
		Actuation: ActuationConfig{
			QueueSize:     actuator.DefaultQueueSize,
			Cooldown:      actuator.DefaultMinInterval,
			Timeout:       actuator.DefaultTimeout,
			PluginDir:     filepath.Join(dataDir, "plugins"),
			PluginTimeout: 5 * time.Second,
		},
		Remo: RemoConfig{
			BaseURL: remo.DefaultBaseURL,
			Button:  remo.ButtonOn,
			Labels:  []string{string(gesture.LeftWristUp)},
		},
		Server: ServerConfig{Addr: ":8080"},
		Store:  StoreConfig{Path: filepath.Join(dataDir, "posegate.db")},
		Log:    LogConfig{Level: "info"},
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	c.Engine.Capacity = envInt(EnvPrefix+"CAPACITY", c.Engine.Capacity)
	c.Engine.Threshold = envFloat(EnvPrefix+"THRESHOLD", c.Engine.Threshold, &errs)
	c.Engine.Share = envFloat(EnvPrefix+"SHARE", c.Engine.Share, &errs)

	c.Camera.Source = envString(EnvPrefix+"CAMERA", c.Camera.Source)
	c.Camera.FPS = envInt(EnvPrefix+"FPS", c.Camera.FPS)

	c.Estimator.Script = envString(EnvPrefix+"MOVENET_SCRIPT", c.Estimator.Script)
	c.Estimator.Python = envString(EnvPrefix+"PYTHON", c.Estimator.Python)

	c.Actuation.QueueSize = envInt(EnvPrefix+"QUEUE_SIZE", c.Actuation.QueueSize)
	c.Actuation.Cooldown = envDuration(EnvPrefix+"COOLDOWN", c.Actuation.Cooldown, &errs)
	c.Actuation.PluginDir = envString(EnvPrefix+"PLUGIN_DIR", c.Actuation.PluginDir)

	c.Remo.Token = envString("REMO_TOKEN", c.Remo.Token)
	c.Remo.ApplianceID = envString("REMO_APPLIANCE_ID", c.Remo.ApplianceID)

	c.Server.Addr = envString(EnvPrefix+"ADDR", c.Server.Addr)
	c.Store.Path = envString(EnvPrefix+"DB", c.Store.Path)
	c.Log.Level = envString(EnvPrefix+"LOG_LEVEL", c.Log.Level)

	return errors.Join(errs...)
}

// Validate checks ranges that the components would otherwise reject later
// with less context.
func (c *Config) Validate() error {
	var errs []error
	if _, err := gesture.NewVoter(c.Engine.Capacity, c.Engine.Share); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if c.Engine.Threshold < 0 || c.Engine.Threshold > 1 {
		errs = append(errs, fmt.Errorf("engine: threshold %v outside [0,1]", c.Engine.Threshold))
	}
	if c.Actuation.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("actuation: queue_size must be positive, got %d", c.Actuation.QueueSize))
	}
	if c.Actuation.Cooldown < 0 {
		errs = append(errs, errors.New("actuation: cooldown must not be negative"))
	}
	for _, l := range c.Remo.Labels {
		if _, err := gesture.ParseLabel(l); err != nil {
			errs = append(errs, fmt.Errorf("remo: %w", err))
		}
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store: path is empty"))
	}
	return errors.Join(errs...)
}

// Gesture converts the engine section to a session config.
func (c *Config) Gesture() gesture.Config {
	return gesture.Config{
		Capacity:  c.Engine.Capacity,
		Threshold: c.Engine.Threshold,
		Share:     c.Engine.Share,
	}
}

// Pose converts the estimator section to a MoveNet config.
func (c *Config) Pose() pose.Config {
	return pose.Config{
		ScriptPath:     c.Estimator.Script,
		Python:         c.Estimator.Python,
		IdleTimeoutSec: int(c.Estimator.IdleTimeout / time.Second),
	}
}

// RemoEnabled reports whether direct Remo actuation is configured.
func (c *Config) RemoEnabled() bool {
	return c.Remo.Token != "" && c.Remo.ApplianceID != ""
}

// RemoLabels returns the parsed Remo labels. Invalid names are skipped;
// Validate reports them.
func (c *Config) RemoLabels() []gesture.Label {
	labels := make([]gesture.Label, 0, len(c.Remo.Labels))
	for _, l := range c.Remo.Labels {
		if parsed, err := gesture.ParseLabel(l); err == nil {
			labels = append(labels, parsed)
		}
	}
	return labels
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat parses a float variable. A malformed value is reported rather
// than ignored, since it usually sets a threshold.
func envFloat(key string, defaultVal float64, errs *[]error) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration, errs *[]error) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return d
}
