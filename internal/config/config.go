// Package config provides configuration for the armdeck commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultAddr       = ":8080"
	DefaultWebDir     = "./web"
	DefaultRecordDir  = "recordings"
	DefaultLogLevel   = "info"
	DefaultSerialBaud = 115200
	DefaultDeckURL    = "http://localhost:8080"
	DefaultSampleRate = 20.0
	DefaultGPIOChip   = "gpiochip0"
)

// Cell is one HX711 wiring pair. Every cell has its own clock and data
// line. A positive factor (raw counts per output unit) enables
// calibrated readings for that cell.
type Cell struct {
	Clock  int     `yaml:"clock"`
	Data   int     `yaml:"data"`
	Factor float64 `yaml:"factor"`
}

// Config holds the settings shared by the armdeck binaries.
type Config struct {
	Addr      string `yaml:"addr"`
	WebDir    string `yaml:"web_dir"`
	RecordDir string `yaml:"record_dir"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	// Serial servo output. Empty disables the local driver.
	SerialPort string `yaml:"serial_port"`
	SerialBaud int    `yaml:"serial_baud"`

	// Bridge settings.
	DeckURL    string  `yaml:"deck_url"`
	BridgeName string  `yaml:"bridge_name"`
	SampleRate float64 `yaml:"sample_rate"`

	// HX711 wiring.
	GPIOChip string `yaml:"gpio_chip"`
	Cells    []Cell `yaml:"cells"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Addr:       DefaultAddr,
		WebDir:     DefaultWebDir,
		RecordDir:  DefaultRecordDir,
		LogLevel:   DefaultLogLevel,
		SerialBaud: DefaultSerialBaud,
		DeckURL:    DefaultDeckURL,
		SampleRate: DefaultSampleRate,
		GPIOChip:   DefaultGPIOChip,
	}
}

// Load builds the configuration in three layers: defaults, then the
// YAML file if one is given (falling back to ARMDECK_CONFIG), then
// ARMDECK_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("ARMDECK_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envString("ARMDECK_ADDR", &cfg.Addr)
	envString("ARMDECK_WEB_DIR", &cfg.WebDir)
	envString("ARMDECK_RECORD_DIR", &cfg.RecordDir)
	envString("ARMDECK_LOG_LEVEL", &cfg.LogLevel)
	envString("ARMDECK_LOG_FILE", &cfg.LogFile)
	envString("ARMDECK_SERIAL_PORT", &cfg.SerialPort)
	envString("ARMDECK_DECK_URL", &cfg.DeckURL)
	envString("ARMDECK_BRIDGE_NAME", &cfg.BridgeName)
	envString("ARMDECK_GPIO_CHIP", &cfg.GPIOChip)

	if err := envInt("ARMDECK_SERIAL_BAUD", &cfg.SerialBaud); err != nil {
		return err
	}
	if err := envFloat("ARMDECK_SAMPLE_RATE", &cfg.SampleRate); err != nil {
		return err
	}

	if v := os.Getenv("ARMDECK_CELLS"); v != "" {
		cells, err := ParseCells(v)
		if err != nil {
			return err
		}
		cfg.Cells = cells
	}
	return nil
}

// ParseCells parses a "clock:data,clock:data" pin list.
func ParseCells(s string) ([]Cell, error) {
	var cells []Cell
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var c Cell
		if _, err := fmt.Sscanf(part, "%d:%d", &c.Clock, &c.Data); err != nil {
			return nil, fmt.Errorf("config: bad cell %q: %w", part, err)
		}
		cells = append(cells, c)
	}
	return cells, nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = f
	return nil
}
