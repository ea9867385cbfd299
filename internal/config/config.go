package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/schedule"
)

// Config holds all blueprint configuration.
type Config struct {
	Calendar CalendarConfig `yaml:"calendar"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CalendarConfig selects the holiday set.
type CalendarConfig struct {
	Preset   string   `yaml:"preset"`   // minimal, us-federal, none
	Holidays []string `yaml:"holidays"` // extra "MM-DD Name" entries
}

// ScheduleConfig selects the propagation policies.
type ScheduleConfig struct {
	FirstTask string `yaml:"first_task"` // weekend-only, working-day
	Handoff   string `yaml:"handoff"`    // next-working-day, same-day
	Edit      string `yaml:"edit"`       // cascade, legacy
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	opts := schedule.DefaultOptions()
	return &Config{
		Calendar: CalendarConfig{
			Preset: calendar.PresetMinimal,
		},
		Schedule: ScheduleConfig{
			FirstTask: string(opts.FirstTask),
			Handoff:   string(opts.Handoff),
			Edit:      string(opts.Edit),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("BLUEPRINT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if preset := os.Getenv("BLUEPRINT_HOLIDAY_PRESET"); preset != "" {
		c.Calendar.Preset = preset
	}
}

// Validate checks the configuration for unknown names and malformed dates.
func (c *Config) Validate() error {
	if _, err := c.BuildCalendar(); err != nil {
		return fmt.Errorf("invalid calendar config: %w", err)
	}
	if _, err := c.SchedulerOptions(); err != nil {
		return fmt.Errorf("invalid schedule config: %w", err)
	}

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		return nil
	}
	for _, l := range ValidLogLevels {
		if level == l {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
}

// BuildCalendar returns the holiday calendar described by the calendar section.
func (c *Config) BuildCalendar() (*calendar.Calendar, error) {
	return calendar.FromConfig(c.Calendar.Preset, c.Calendar.Holidays)
}

// SchedulerOptions returns the propagation policies described by the schedule
// section.
func (c *Config) SchedulerOptions() (schedule.Options, error) {
	return schedule.ParseOptions(c.Schedule.FirstTask, c.Schedule.Handoff, c.Schedule.Edit)
}
