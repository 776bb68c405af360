package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultProfile is the profile every other profile inherits from.
const DefaultProfile = "default"

// RootConfig is the file layout: the active profile name and all profiles
type RootConfig struct {
	ActiveConfig string             `mapstructure:"active_config" yaml:"active_config"`
	Audio        *AudioConfig       `mapstructure:"audio,omitempty" yaml:"audio,omitempty"`
	Configs      map[string]*Config `mapstructure:"configs" yaml:"configs"`
}

// Config is one resolved profile
type Config struct {
	Audio   AudioConfig   `mapstructure:"audio" yaml:"audio"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`

	// Internal field to track where each resolved value came from
	Inheritance map[string]string `mapstructure:"-" yaml:"-"`
}

// AudioConfig selects the audio backend and ffmpeg binary
type AudioConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"` // "pipewire", "pulse", "auto"
	FFmpegPath string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
}

// CaptureConfig holds the microphone constraints and recorder settings.
type CaptureConfig struct {
	Device           string   `mapstructure:"device" yaml:"device"` // empty selects the default capture source
	SampleRate       int      `mapstructure:"sample_rate" yaml:"sample_rate"`
	EchoCancellation *bool    `mapstructure:"echo_cancellation" yaml:"echo_cancellation"`
	NoiseSuppression *bool    `mapstructure:"noise_suppression" yaml:"noise_suppression"`
	Encodings        []string `mapstructure:"encodings" yaml:"encodings"` // preference order, last entry is the fallback
	TimesliceMs      int      `mapstructure:"timeslice_ms" yaml:"timeslice_ms"`
}

// DisplayConfig controls the duration display
type DisplayConfig struct {
	SurfaceID      string `mapstructure:"surface_id" yaml:"surface_id"`
	TickIntervalMs int    `mapstructure:"tick_interval_ms" yaml:"tick_interval_ms"`
	SettleDelayMs  int    `mapstructure:"settle_delay_ms" yaml:"settle_delay_ms"`
}

// OutputConfig is where recordings are saved
type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// ServerConfig configures the web server
type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

func boolPtr(v bool) *bool { return &v }

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:    "auto",
			FFmpegPath: "ffmpeg",
		},
		Capture: CaptureConfig{
			SampleRate:       44100,
			EchoCancellation: boolPtr(true),
			NoiseSuppression: boolPtr(true),
			Encodings:        []string{"audio/webm;codecs=opus", "audio/webm"},
			TimesliceMs:      1000,
		},
		Display: DisplayConfig{
			SurfaceID:      "recording-duration",
			TickIntervalMs: 1000,
			SettleDelayMs:  100,
		},
		Output: OutputConfig{
			Directory: filepath.Join(os.Getenv("HOME"), "Audio", "VoiceCapture"),
		},
		Server: ServerConfig{
			Port: "8080",
		},
		Inheritance: map[string]string{},
	}
}

// LoadWithProfile resolves the requested profile (or the file's active_config)
// on top of the default profile and the built-in defaults.
func LoadWithProfile(configFile, profile string) (*Config, error) {
	if configFile == "" {
		return finalize(Default())
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if profile != "" && profile != DefaultProfile {
			return nil, fmt.Errorf("configuration profile '%s' not found: %s does not exist", profile, configFile)
		}
		slog.Debug("Config file not found, using built-in defaults", "path", configFile)
		return finalize(Default())
	}

	rootConfig, err := ReadRootConfig(configFile)
	if err != nil {
		return nil, err
	}

	configName := profile
	if configName == "" {
		configName = rootConfig.ActiveConfig
	}
	if configName == "" {
		configName = DefaultProfile
	}

	selected, exists := rootConfig.Configs[configName]
	if !exists && configName != DefaultProfile {
		return nil, fmt.Errorf("configuration profile '%s' not found", configName)
	}

	base := Default()
	if rootConfig.Audio != nil {
		base = mergeConfigs(base, &Config{Audio: *rootConfig.Audio})
	}
	if configName != DefaultProfile {
		if defaultProfile, ok := rootConfig.Configs[DefaultProfile]; ok {
			base = mergeConfigs(base, defaultProfile)
		}
	}

	resolved := base
	if selected != nil {
		resolved = mergeConfigs(base, selected)
	}

	cfg, err := finalize(resolved)
	if err != nil {
		return nil, fmt.Errorf("config validation failed for profile '%s': %w", configName, err)
	}
	return cfg, nil
}

// ReadRootConfig reads the raw file without resolving profiles.
func ReadRootConfig(configFile string) (*RootConfig, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetEnvPrefix("VOICECAPTURE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var rootConfig RootConfig
	if err := v.Unmarshal(&rootConfig); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	for name, profile := range rootConfig.Configs {
		if profile == nil {
			return nil, fmt.Errorf("configuration profile '%s' is empty", name)
		}
	}

	return &rootConfig, nil
}

// UpdateActiveConfig updates the active_config field in the config file
func UpdateActiveConfig(configFile, newActiveConfig string) error {
	if configFile == "" {
		return fmt.Errorf("no config file specified")
	}

	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	profiles := v.GetStringMap("configs")
	if _, ok := profiles[newActiveConfig]; !ok && newActiveConfig != DefaultProfile {
		return fmt.Errorf("configuration profile '%s' not found", newActiveConfig)
	}

	v.Set("active_config", newActiveConfig)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}

	return nil
}

func finalize(cfg *Config) (*Config, error) {
	cfg.Output.Directory = expandPath(cfg.Output.Directory)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeConfigs overlays every non-zero profile value on base and records
// which fields the profile set.
func mergeConfigs(base, profile *Config) *Config {
	result := &Config{Inheritance: map[string]string{}}

	if base != nil {
		result.Audio = base.Audio
		result.Capture = base.Capture
		result.Capture.Encodings = append([]string(nil), base.Capture.Encodings...)
		result.Display = base.Display
		result.Output = base.Output
		result.Server = base.Server
		for _, key := range inheritanceKeys {
			result.Inheritance[key] = "inherited"
		}
	}

	if profile == nil {
		return result
	}

	set := func(key string) { result.Inheritance[key] = "profile-specific" }

	if profile.Audio.Backend != "" {
		result.Audio.Backend = profile.Audio.Backend
		set("audio.backend")
	}
	if profile.Audio.FFmpegPath != "" {
		result.Audio.FFmpegPath = profile.Audio.FFmpegPath
		set("audio.ffmpeg_path")
	}

	if profile.Capture.Device != "" {
		result.Capture.Device = profile.Capture.Device
		set("capture.device")
	}
	if profile.Capture.SampleRate != 0 {
		result.Capture.SampleRate = profile.Capture.SampleRate
		set("capture.sample_rate")
	}
	if profile.Capture.EchoCancellation != nil {
		result.Capture.EchoCancellation = boolPtr(*profile.Capture.EchoCancellation)
		set("capture.echo_cancellation")
	}
	if profile.Capture.NoiseSuppression != nil {
		result.Capture.NoiseSuppression = boolPtr(*profile.Capture.NoiseSuppression)
		set("capture.noise_suppression")
	}
	if len(profile.Capture.Encodings) > 0 {
		result.Capture.Encodings = append([]string(nil), profile.Capture.Encodings...)
		set("capture.encodings")
	}
	if profile.Capture.TimesliceMs != 0 {
		result.Capture.TimesliceMs = profile.Capture.TimesliceMs
		set("capture.timeslice_ms")
	}

	if profile.Display.SurfaceID != "" {
		result.Display.SurfaceID = profile.Display.SurfaceID
		set("display.surface_id")
	}
	if profile.Display.TickIntervalMs != 0 {
		result.Display.TickIntervalMs = profile.Display.TickIntervalMs
		set("display.tick_interval_ms")
	}
	if profile.Display.SettleDelayMs != 0 {
		result.Display.SettleDelayMs = profile.Display.SettleDelayMs
		set("display.settle_delay_ms")
	}

	if profile.Output.Directory != "" {
		result.Output.Directory = profile.Output.Directory
		set("output.directory")
	}
	if profile.Server.Port != "" {
		result.Server.Port = profile.Server.Port
		set("server.port")
	}

	return result
}

var inheritanceKeys = []string{
	"audio.backend", "audio.ffmpeg_path",
	"capture.device", "capture.sample_rate", "capture.echo_cancellation",
	"capture.noise_suppression", "capture.encodings", "capture.timeslice_ms",
	"display.surface_id", "display.tick_interval_ms", "display.settle_delay_ms",
	"output.directory", "server.port",
}

// InheritanceKeys lists the tracked fields in display order.
func InheritanceKeys() []string {
	return append([]string(nil), inheritanceKeys...)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Validate checks a resolved configuration.
func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.Audio.Backend) {
	case "pipewire", "pulse", "auto":
	default:
		return fmt.Errorf("audio.backend must be 'pipewire', 'pulse' or 'auto', got: %s", cfg.Audio.Backend)
	}

	if cfg.Audio.FFmpegPath == "" {
		return fmt.Errorf("audio.ffmpeg_path is required")
	}

	if cfg.Capture.SampleRate < 8000 || cfg.Capture.SampleRate > 192000 {
		return fmt.Errorf("capture.sample_rate must be between 8000 and 192000, got: %d", cfg.Capture.SampleRate)
	}

	if len(cfg.Capture.Encodings) == 0 {
		return fmt.Errorf("capture.encodings must list at least one encoding")
	}
	for i, enc := range cfg.Capture.Encodings {
		if !strings.HasPrefix(enc, "audio/") {
			return fmt.Errorf("capture.encodings[%d] must be an audio MIME type, got: %s", i, enc)
		}
	}

	if cfg.Capture.TimesliceMs < 10 {
		return fmt.Errorf("capture.timeslice_ms must be >= 10, got: %d", cfg.Capture.TimesliceMs)
	}
	if cfg.Display.TickIntervalMs < 10 {
		return fmt.Errorf("display.tick_interval_ms must be >= 10, got: %d", cfg.Display.TickIntervalMs)
	}
	if cfg.Display.SettleDelayMs < 0 {
		return fmt.Errorf("display.settle_delay_ms must be >= 0, got: %d", cfg.Display.SettleDelayMs)
	}
	if cfg.Display.SurfaceID == "" {
		return fmt.Errorf("display.surface_id is required")
	}

	if cfg.Output.Directory == "" {
		return fmt.Errorf("output.directory is required")
	}
	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	return nil
}

// EchoCancellation reports the resolved echo cancellation constraint.
func (c *Config) EchoCancellation() bool {
	return c.Capture.EchoCancellation == nil || *c.Capture.EchoCancellation
}

// NoiseSuppression reports the resolved noise suppression constraint.
func (c *Config) NoiseSuppression() bool {
	return c.Capture.NoiseSuppression == nil || *c.Capture.NoiseSuppression
}

// Timeslice is how often recorded chunks are delivered
func (c *Config) Timeslice() time.Duration {
	return time.Duration(c.Capture.TimesliceMs) * time.Millisecond
}

// TickInterval is the display refresh period
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Display.TickIntervalMs) * time.Millisecond
}

// SettleDelay is the wait before the first display update
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Display.SettleDelayMs) * time.Millisecond
}
