// Package featureflags evaluates runtime switches read from config or a YAML file.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Known flags.
const (
	// Registration allows new accounts to sign up.
	Registration = "registration"
	// LiveFeed enables the websocket content feed.
	LiveFeed = "live_feed"
	// WebPPreviews generates webp previews for uploaded images.
	WebPPreviews = "webp_previews"
)

var defaults = map[string]string{
	Registration: "on",
	LiveFeed:     "on",
	WebPPreviews: "on",
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "registration=on,live_feed=25%,webp_previews=off"
// Known flags default to on unless configured otherwise.
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

type fileFormat struct {
	Flags map[string]string `yaml:"flags"`
}

// LoadFile overlays flags from a YAML file of the form:
//
//	flags:
//	  registration: off
//	  live_feed: 50%
func (m *Manager) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read feature flags: %w", err)
	}
	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse feature flags %s: %w", path, err)
	}
	for k, v := range doc.Flags {
		if k, v = normalize(k), normalize(v); k != "" && v != "" {
			m.flags[k] = v
		}
	}
	return nil
}

// Enabled returns whether a flag is enabled for a given subject.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic rollout by subject, e.g. 25%)
func (m *Manager) Enabled(name, subject string) bool {
	var value string
	if m == nil {
		value = defaults[normalize(name)]
	} else {
		value = m.flags[normalize(name)]
	}

	switch value {
	case "on", "true", "1":
		return true
	case "", "off", "false", "0":
		return false
	}

	if pctRaw, ok := strings.CutSuffix(value, "%"); ok {
		pct, err := strconv.Atoi(pctRaw)
		if err != nil || pct <= 0 {
			return false
		}
		if pct >= 100 {
			return true
		}
		if subject == "" {
			return false
		}
		return rolloutBucket(name, subject) < pct
	}

	return false
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one subject.
func (m *Manager) Snapshot(subject string) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, subject)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + subject))
	return int(h.Sum32() % 100)
}
