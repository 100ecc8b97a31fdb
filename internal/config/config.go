// Package config loads the optional multi-listener YAML configuration,
// adapted from the teacher's config.go (which described a fixed outbound
// IPv6 per listener) to describe a SOCKS listener's port and access rules.
package config

import (
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"
)

// Listener is a single SOCKS listener entry.
type Listener struct {
	Port int    `yaml:"port"`
	Bind string `yaml:"bind"` // defaults to 0.0.0.0 when empty

	// Allow is a static allow-list of client addresses/CIDRs. An empty
	// list means "allow all", matching spec §9's default policy.
	Allow []string `yaml:"allow"`
}

// Config is the top-level YAML configuration for --config.
type Config struct {
	Listeners []Listener `yaml:"listeners"`
}

// Load reads and validates the YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Listeners) == 0 {
		return nil, fmt.Errorf("config: at least one listener is required")
	}

	seenPorts := make(map[int]struct{}, len(cfg.Listeners))
	for i := range cfg.Listeners {
		l := &cfg.Listeners[i]

		if l.Port < 1 || l.Port > 65535 {
			return nil, fmt.Errorf("config: listeners[%d]: port %d out of range (1-65535)", i, l.Port)
		}
		if _, ok := seenPorts[l.Port]; ok {
			return nil, fmt.Errorf("config: listeners[%d]: duplicate port %d", i, l.Port)
		}
		seenPorts[l.Port] = struct{}{}

		if l.Bind == "" {
			l.Bind = "0.0.0.0"
		} else if net.ParseIP(l.Bind) == nil {
			return nil, fmt.Errorf("config: listeners[%d]: invalid bind address %q", i, l.Bind)
		}

		for j, cidr := range l.Allow {
			if net.ParseIP(cidr) != nil {
				continue
			}
			if _, _, err := net.ParseCIDR(cidr); err != nil {
				return nil, fmt.Errorf("config: listeners[%d]: allow[%d]: invalid address or CIDR %q", i, j, cidr)
			}
		}
	}

	return &cfg, nil
}

// Addr returns the listener's bind address in host:port form.
func (l Listener) Addr() string {
	return fmt.Sprintf("%s:%d", l.Bind, l.Port)
}
