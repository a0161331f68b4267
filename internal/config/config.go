// Package config resolves trainsetctl's runtime configuration from flags
// and TRAINSET_*-prefixed environment overrides (env wins over its
// matching flag default but not over a flag explicitly set on the
// command line).
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Transport selects the physical-layer implementation.
type Transport string

const (
	TransportLoopback Transport = "loopback"
	TransportSerial   Transport = "serial"
)

// Config is every knob trainsetctl's boot sequence reads before wiring
// the kernel, data-link, and application layers together.
type Config struct {
	Transport         Transport
	SerialDevice      string
	SerialReadTimeout time.Duration
	TickInterval      time.Duration
	RetransmitAfter   time.Duration
	SwitchCount       int
	MetricsAddr       string
	Debug             bool
}

// Default matches spec.md §4.E's 100Hz tick and a disabled retransmit
// timer (SPEC_FULL.md's Open Question resolution). Baud/parity are not
// configured here: spec.md's Non-goals exclude driver/clock
// configuration, and internal/physical.OpenSerial leaves the port's
// line settings to whatever the operating system already has applied.
func Default() Config {
	return Config{
		Transport:         TransportLoopback,
		SerialDevice:      "/dev/ttyUSB0",
		SerialReadTimeout: 500 * time.Millisecond,
		TickInterval:      10 * time.Millisecond,
		RetransmitAfter:   0,
		SwitchCount:       8,
		MetricsAddr:       ":6060",
	}
}

// Parse builds a Config from args (flags) and the process environment,
// in that precedence order: an environment variable only overrides a
// flag's default, never a flag the caller actually passed.
func Parse(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("trainsetctl", flag.ContinueOnError)
	transport := fs.String("transport", string(cfg.Transport), "physical transport: loopback or serial")
	device := fs.String("serial-device", cfg.SerialDevice, "serial device path, when -transport=serial")
	readTimeout := fs.Duration("serial-read-timeout", cfg.SerialReadTimeout, "serial read timeout, when -transport=serial")
	tick := fs.Duration("tick", cfg.TickInterval, "scheduler tick interval")
	retransmit := fs.Duration("retransmit", cfg.RetransmitAfter, "data-link retransmit timer; 0 disables it")
	switches := fs.Int("switches", cfg.SwitchCount, "number of track switches the routing table manages")
	metricsAddr := fs.String("metrics-addr", cfg.MetricsAddr, "debugcharts listen address")
	debug := fs.Bool("debug", cfg.Debug, "enable debug-level logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if !explicit["transport"] {
		applyEnvOverride("TRAINSET_TRANSPORT", transport)
	}
	if !explicit["serial-device"] {
		applyEnvOverride("TRAINSET_SERIAL_DEVICE", device)
	}
	if !explicit["serial-read-timeout"] {
		applyEnvOverrideDuration("TRAINSET_SERIAL_READ_TIMEOUT", readTimeout)
	}
	if !explicit["tick"] {
		applyEnvOverrideDuration("TRAINSET_TICK", tick)
	}
	if !explicit["retransmit"] {
		applyEnvOverrideDuration("TRAINSET_RETRANSMIT", retransmit)
	}
	if !explicit["switches"] {
		applyEnvOverrideInt("TRAINSET_SWITCHES", switches)
	}
	if !explicit["metrics-addr"] {
		applyEnvOverride("TRAINSET_METRICS_ADDR", metricsAddr)
	}
	if !explicit["debug"] {
		applyEnvOverrideBool("TRAINSET_DEBUG", debug)
	}

	cfg.Transport = Transport(*transport)
	cfg.SerialDevice = *device
	cfg.SerialReadTimeout = *readTimeout
	cfg.TickInterval = *tick
	cfg.RetransmitAfter = *retransmit
	cfg.SwitchCount = *switches
	cfg.MetricsAddr = *metricsAddr
	cfg.Debug = *debug

	if cfg.Transport != TransportLoopback && cfg.Transport != TransportSerial {
		return Config{}, fmt.Errorf("config: unknown transport %q", cfg.Transport)
	}
	return cfg, nil
}

func applyEnvOverride(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func applyEnvOverrideInt(name string, dst *int) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func applyEnvOverrideBool(name string, dst *bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

func applyEnvOverrideDuration(name string, dst *time.Duration) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
