// Package config provides configuration structures and defaults for the
// Wi-Fi capture tool.
package config

// Config represents the complete application configuration
type Config struct {
	SDR     SDRConfig     `yaml:"sdr" mapstructure:"sdr"`         // SDR device settings
	Capture CaptureConfig `yaml:"capture" mapstructure:"capture"` // Capture session settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"` // Logging configuration
}

// SDRConfig contains SDR device configuration parameters
type SDRConfig struct {
	DeviceArgs string  `yaml:"device_args" mapstructure:"device_args"` // Soapy device selector, e.g. "driver=lime"
	Channel    int     `yaml:"channel" mapstructure:"channel"`         // 2.4 GHz Wi-Fi channel (1-14)
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"` // Sample rate in Hz
	Bandwidth  float64 `yaml:"bandwidth" mapstructure:"bandwidth"`     // RF filter bandwidth in Hz
	Gain       float64 `yaml:"gain" mapstructure:"gain"`               // Overall gain (device-interpreted units)
	Format     string  `yaml:"format" mapstructure:"format"`           // Sample encoding: ComplexFloat32 or ComplexInt16
}

// CaptureConfig contains capture session configuration parameters
type CaptureConfig struct {
	Seconds   float64 `yaml:"seconds" mapstructure:"seconds"`       // Capture duration in seconds
	OutputDir string  `yaml:"output_dir" mapstructure:"output_dir"` // Directory for capture artifacts
}

// LoggingConfig contains logging configuration parameters
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // Log level (debug, info, warn, error)
}

// DefaultConfig returns a configuration with sensible default values
func DefaultConfig() *Config {
	return &Config{
		SDR: SDRConfig{
			DeviceArgs: "",               // Match any device, use first
			Channel:    6,                // Mid-band channel
			SampleRate: 20e6,             // Full 20 MHz Wi-Fi channel
			Bandwidth:  25e6,             // Slightly wider than the channel
			Gain:       40.0,             // Moderate front-end gain
			Format:     "ComplexFloat32", // CF32 preferred
		},
		Capture: CaptureConfig{
			Seconds:   10.0,         // 10 second capture
			OutputDir: "./captures", // Local captures folder
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
