package config

import (
	"time"
	_ "time/tzdata"
)

// Defaults applied when the config file omits a field.
const (
	DefaultListen          = ":8000"
	DefaultStatusFile      = "automation_status.json"
	DefaultTimezone        = "Asia/Tokyo"
	DefaultNATSSubject     = "automation.status"
	DefaultMaxMessageBytes = 500
)

// Config is the runctl configuration loaded from JSON.
type Config struct {
	Listen      string           `json:"listen"`
	StatusFile  string           `json:"status_file"`
	Timezone    string           `json:"timezone"`
	CORSOrigins []string         `json:"cors_origins"`
	NATSURL     string           `json:"nats_url,omitempty"`
	NATSSubject string           `json:"nats_subject,omitempty"`
	Automation  AutomationConfig `json:"automation"`
}

// AutomationConfig describes the external process started for each run.
type AutomationConfig struct {
	Command []string          `json:"command"`
	Dir     string            `json:"dir,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	Timeout         string `json:"timeout,omitempty"`           // e.g. "2h"; empty means no limit
	MaxMessageBytes int    `json:"max_message_bytes,omitempty"` // tail of diagnostics kept on failure
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Listen:      DefaultListen,
		StatusFile:  DefaultStatusFile,
		Timezone:    DefaultTimezone,
		CORSOrigins: []string{"*"},
		NATSSubject: DefaultNATSSubject,
		Automation: AutomationConfig{
			Command:         []string{"python3", "amazon_auto.py"},
			Dir:             ".",
			Env:             map[string]string{"PYTHONIOENCODING": "utf-8"},
			MaxMessageBytes: DefaultMaxMessageBytes,
		},
	}
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.LoadLocation(DefaultTimezone)
	}
	return time.LoadLocation(c.Timezone)
}

// GetTimeout parses and returns the run timeout.
func (a AutomationConfig) GetTimeout() time.Duration {
	if a.Timeout == "" {
		return 0 // No timeout
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetMaxMessageBytes returns the diagnostic size cap.
func (a AutomationConfig) GetMaxMessageBytes() int {
	if a.MaxMessageBytes <= 0 {
		return DefaultMaxMessageBytes
	}
	return a.MaxMessageBytes
}

// Clone returns a deep copy so callers can hand settings to a running
// goroutine without sharing the slice and map.
func (a AutomationConfig) Clone() AutomationConfig {
	out := a
	out.Command = append([]string(nil), a.Command...)
	if a.Env != nil {
		out.Env = make(map[string]string, len(a.Env))
		for k, v := range a.Env {
			out.Env[k] = v
		}
	}
	return out
}
