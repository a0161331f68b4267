package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error: %v", err)
	}
	if cfg.Transport != TransportLoopback {
		t.Errorf("Transport = %q, want %q", cfg.Transport, TransportLoopback)
	}
	if cfg.TickInterval != 10*time.Millisecond {
		t.Errorf("TickInterval = %v, want 10ms", cfg.TickInterval)
	}
}

func TestParseFlagOverridesDefault(t *testing.T) {
	cfg, err := Parse([]string{"-transport=serial", "-serial-device=/dev/ttyS1"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Transport != TransportSerial {
		t.Errorf("Transport = %q, want serial", cfg.Transport)
	}
	if cfg.SerialDevice != "/dev/ttyS1" {
		t.Errorf("SerialDevice = %q, want /dev/ttyS1", cfg.SerialDevice)
	}
}

func TestEnvOverridesFlagDefault(t *testing.T) {
	t.Setenv("TRAINSET_SWITCHES", "12")
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.SwitchCount != 12 {
		t.Errorf("SwitchCount = %d, want 12", cfg.SwitchCount)
	}
}

func TestUnknownTransportRejected(t *testing.T) {
	if _, err := Parse([]string{"-transport=bogus"}); err == nil {
		t.Error("Parse with unknown transport should have failed")
	}
}

func TestExplicitFlagBeatsEnv(t *testing.T) {
	t.Setenv("TRAINSET_SWITCHES", "12")
	cfg, err := Parse([]string{"-switches=4"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.SwitchCount != 4 {
		t.Errorf("SwitchCount = %d, want 4 (explicit flag should beat env)", cfg.SwitchCount)
	}
}
