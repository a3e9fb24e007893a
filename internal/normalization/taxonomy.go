package normalization

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Reserved source identifiers.
const (
	// SourceManualTest is forced for test-mode deliveries.
	SourceManualTest = "manual_test"
	// DefaultPlatformSource is the platform's own namespace, used when no
	// partner can be inferred.
	DefaultPlatformSource = "platform"
)

// PartnerTaxonomy lists the event names that identify one partner system.
type PartnerTaxonomy struct {
	Source string   `yaml:"source"`
	Events []string `yaml:"events"`
}

// Taxonomy is the closed, versioned set of known partner event names used to
// infer a source system when the caller does not declare one.
type Taxonomy struct {
	Version  string            `yaml:"version"`
	Partners []PartnerTaxonomy `yaml:"partners"`

	index map[string]string
}

// DefaultTaxonomy returns the built-in taxonomy.
func DefaultTaxonomy() *Taxonomy {
	t := &Taxonomy{
		Version: "2024.1",
		Partners: []PartnerTaxonomy{{
			Source: "viral_loops",
			Events: []string{
				"participant_joined",
				"referral_made",
				"reward_earned",
				"milestone_reached",
				"contest_entered",
				"share_completed",
			},
		}},
	}
	// The built-in table is known valid.
	_ = t.build()
	return t
}

// LoadTaxonomy reads a taxonomy from a YAML file. An empty path returns the
// built-in default.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file %q: %w", path, err)
	}
	return ParseTaxonomy(data)
}

// ParseTaxonomy decodes and validates a YAML taxonomy document.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if err := t.build(); err != nil {
		return nil, err
	}
	return &t, nil
}

// build validates the taxonomy and indexes event names.
// An event name may belong to only one partner.
func (t *Taxonomy) build() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("taxonomy version is required")
	}

	index := make(map[string]string)
	for _, p := range t.Partners {
		source := strings.TrimSpace(p.Source)
		if source == "" {
			return fmt.Errorf("taxonomy %s: partner source is required", t.Version)
		}
		if source == SourceManualTest {
			return fmt.Errorf("taxonomy %s: source %q is reserved", t.Version, source)
		}
		for _, name := range p.Events {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if owner, dup := index[name]; dup && owner != source {
				return fmt.Errorf("taxonomy %s: event %q listed for both %q and %q", t.Version, name, owner, source)
			}
			index[name] = source
		}
	}

	t.index = index
	return nil
}

// SourceFor returns the partner that owns eventName, if any.
func (t *Taxonomy) SourceFor(eventName string) (string, bool) {
	if t == nil {
		return "", false
	}
	source, ok := t.index[eventName]
	return source, ok
}

// Len returns the number of known event names.
func (t *Taxonomy) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}
