// Package featureflags toggles optional runtime behavior from the FEATURE_FLAGS setting.
//
// FEATURE_FLAGS is a comma-separated list of name=value pairs. A value is on/off (also
// true/false, 1/0) or a percentage such as 25%. Percentages only apply to flags that are
// evaluated per acting user; process-wide flags treat anything below 100% as off.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flags read by the server.
const (
	// ModerationEvents publishes report and ban events on Redis. Rolls out by acting user.
	ModerationEvents = "moderation_events"
	// AuditRetentionWorker runs the audit retention purge inside the API process.
	AuditRetentionWorker = "audit_retention_worker"
)

// Flag describes one toggle the server understands.
type Flag struct {
	Name        string
	Description string
	PerActor    bool
}

var known = map[string]Flag{
	ModerationEvents: {
		Name:        ModerationEvents,
		Description: "Publish report and ban events on the moderation channel",
		PerActor:    true,
	},
	AuditRetentionWorker: {
		Name:        AuditRetentionWorker,
		Description: "Run the audit retention purge on a ticker inside the API process",
	},
}

// Known lists every flag the server understands, sorted by name.
func Known() []Flag {
	out := make([]Flag, 0, len(known))
	for _, f := range known {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// rule is one parsed FEATURE_FLAGS entry. percent is 0..100; switches parse to 0 or 100.
type rule struct {
	raw     string
	percent int
}

// Manager evaluates the configured flags. The zero value and a nil Manager have every
// flag off.
type Manager struct {
	rules   map[string]rule
	unknown []string
	invalid []string
}

// NewManager parses a FEATURE_FLAGS string. Entries naming flags the server does not know
// are kept aside for Unknown; entries with unreadable values for Invalid.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule)}

	for _, entry := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(entry, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" || value == "" {
			if strings.TrimSpace(entry) != "" {
				m.invalid = append(m.invalid, strings.TrimSpace(entry))
			}
			continue
		}
		if _, isKnown := known[name]; !isKnown {
			m.unknown = append(m.unknown, name)
			continue
		}
		pct, err := parsePercent(value)
		if err != nil {
			m.invalid = append(m.invalid, name+"="+value)
			continue
		}
		m.rules[name] = rule{raw: value, percent: pct}
	}

	sort.Strings(m.unknown)
	return m
}

func parsePercent(value string) (int, error) {
	switch value {
	case "on", "true", "1":
		return 100, nil
	case "off", "false", "0":
		return 0, nil
	}
	digits, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0, fmt.Errorf("unrecognized flag value %q", value)
	}
	pct, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("unrecognized flag value %q", value)
	}
	return min(max(pct, 0), 100), nil
}

// Enabled reports whether a process-wide flag is fully on.
func (m *Manager) Enabled(name string) bool {
	if m == nil {
		return false
	}
	return m.rules[normalize(name)].percent >= 100
}

// Active reports whether a flag is on for anyone, i.e. configured above 0%.
func (m *Manager) Active(name string) bool {
	if m == nil {
		return false
	}
	return m.rules[normalize(name)].percent > 0
}

// EnabledFor evaluates a per-actor flag for actorID. Each actor lands in a stable bucket,
// so widening the percentage only ever adds actors. Anonymous actors only see flags at 100%.
func (m *Manager) EnabledFor(name string, actorID uint) bool {
	if m == nil {
		return false
	}
	name = normalize(name)
	pct := m.rules[name].percent
	switch {
	case pct >= 100:
		return true
	case pct <= 0 || actorID == 0:
		return false
	}
	if f, ok := known[name]; !ok || !f.PerActor {
		return false
	}
	return rolloutBucket(name, actorID) < pct
}

// Unknown returns the configured names the server does not recognize.
func (m *Manager) Unknown() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.unknown...)
}

// Invalid returns the entries that could not be parsed.
func (m *Manager) Invalid() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.invalid...)
}

// Raw returns the configured value of every recognized flag.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, actorID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", name, actorID)
	return int(h.Sum32() % 100)
}
