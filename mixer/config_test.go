// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"testing"

	"github.com/ossrs/go-oryx-lib/errors"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"zero rate", func(c *Config) { c.SampleRate = 0 }, false},
		{"zero frames", func(c *Config) { c.NumOutputFrames = 0 }, false},
		{"frames not multiple of 4", func(c *Config) { c.NumOutputFrames = 250 }, false},
		{"no sources", func(c *Config) { c.NumSources = 0 }, false},
		{"no workers", func(c *Config) { c.NumWorkers = 0 }, false},
		{"more workers than sources", func(c *Config) { c.NumSources = 2; c.NumWorkers = 8 }, true},
		{"no output channels", func(c *Config) { c.OutputChannels = 0 }, false},
		{"nine output channels", func(c *Config) { c.OutputChannels = 9 }, false},
		{"zero flush timeout", func(c *Config) { c.FlushTimeout = 0 }, false},
		{"negative release", func(c *Config) { c.EnvelopeRelease = -1 }, false},
		{"negative epsilon", func(c *Config) { c.AzimuthEpsilon = -1 }, false},
		{"negative commands", func(c *Config) { c.MaxCommandsPerBlock = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.ok && errors.Cause(err) != ErrInvalidConfig {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNewManager_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.NumSources = 0
	if _, err := NewManager(cfg, Plugins{}); errors.Cause(err) != ErrInvalidConfig {
		t.Errorf("NewManager() error = %v, want ErrInvalidConfig", err)
	}
}
