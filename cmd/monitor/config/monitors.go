package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/hargaemas/gold-monitor/pkg/rules"
)

// MonitorsFile is the YAML document describing every monitored quantity.
type MonitorsFile struct {
	Monitors []MonitorConfig `yaml:"monitors"`
}

// MonitorConfig defines a single monitor: where its value comes from,
// how often to poll it, and when to alert. Omitted fields fall back to
// the defaults applied by LoadMonitors.
type MonitorConfig struct {
	Name       string           `yaml:"name"`
	Source     SourceConfig     `yaml:"source"`
	Poll       PollConfig       `yaml:"poll"`
	Retry      RetryConfig      `yaml:"retry"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Retention  int              `yaml:"retention"`
	StaleAfter time.Duration    `yaml:"stale_after"`
}

// SourceConfig points at the upstream JSON endpoint.
type SourceConfig struct {
	URL            string        `yaml:"url"`
	Field          string        `yaml:"field"`
	TimestampField string        `yaml:"timestamp_field,omitempty"`
	Tag            string        `yaml:"tag,omitempty"`
	Timeout        time.Duration `yaml:"timeout"`
}

// PollConfig sets the steady-state polling cadence.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// RetryConfig bounds the in-cycle retry loop for transient failures.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// ThresholdsConfig carries the severity band boundaries.
type ThresholdsConfig struct {
	Warning  float64 `yaml:"warning"`
	Critical float64 `yaml:"critical"`
}

// LoadMonitors reads and validates the monitor definitions at path.
func LoadMonitors(path string) (*MonitorsFile, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("monitors file not found: %s", path)
	}

	var mf MonitorsFile
	if err := cleanenv.ReadConfig(path, &mf); err != nil {
		return nil, fmt.Errorf("read monitors file: %w", err)
	}

	if len(mf.Monitors) == 0 {
		return nil, fmt.Errorf("monitors file %s defines no monitors", path)
	}

	seen := make(map[string]bool, len(mf.Monitors))
	for i := range mf.Monitors {
		m := &mf.Monitors[i]
		m.applyDefaults()
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("monitor %q: %w", m.Name, err)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("duplicate monitor name %q", m.Name)
		}
		seen[m.Name] = true
	}

	return &mf, nil
}

// applyDefaults fills in omitted optional fields. The 1441-entry
// retention keeps a minute-resolution day plus the current sample.
func (m *MonitorConfig) applyDefaults() {
	if m.Source.Timeout == 0 {
		m.Source.Timeout = 10 * time.Second
	}
	if m.Poll.Interval == 0 {
		m.Poll.Interval = 60 * time.Second
	}
	if m.Retry.MaxAttempts == 0 {
		m.Retry.MaxAttempts = 3
	}
	if m.Retry.InitialDelay == 0 {
		m.Retry.InitialDelay = time.Second
	}
	if m.Retry.MaxDelay == 0 {
		m.Retry.MaxDelay = 30 * time.Second
	}
	if m.Retention == 0 {
		m.Retention = 1441
	}
	if m.StaleAfter == 0 {
		m.StaleAfter = 5 * time.Minute
	}
}

func (m *MonitorConfig) validate() error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if m.Source.Field == "" {
		return fmt.Errorf("source.field is required")
	}
	if m.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if m.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if m.Retention < 1 {
		return fmt.Errorf("retention must be positive")
	}
	if m.StaleAfter < 0 {
		return fmt.Errorf("stale_after must not be negative")
	}
	if err := m.Ruleset().Thresholds.Validate(); err != nil {
		return err
	}
	return nil
}

// Ruleset converts the YAML thresholds into the evaluator's form.
func (m *MonitorConfig) Ruleset() rules.Ruleset {
	return rules.Ruleset{
		Thresholds: rules.Thresholds{
			Warning:  m.Thresholds.Warning,
			Critical: m.Thresholds.Critical,
		},
		StaleAfter: m.StaleAfter,
	}
}
