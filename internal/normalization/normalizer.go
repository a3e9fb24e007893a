package normalization

import (
	"context"
	"log/slog"
)

// Result labels for normalization outcomes.
const (
	ResultMapped   = "mapped"
	ResultUnmapped = "unmapped"
	ResultDegraded = "degraded"
)

// Input is the part of an inbound event the normalizer looks at.
type Input struct {
	ProjectID    string
	EventName    string
	SourceSystem string
	TestMode     bool
}

// Outcome is a resolved source system and canonical event name.
type Outcome struct {
	SourceSystem string

	// EventName is the canonical name. It equals the raw name when the
	// collaborator did not map it or was unavailable.
	EventName string

	// OriginalEventName is the raw name, set only when it differs from EventName.
	OriginalEventName string

	WasMapped       bool
	Degraded        bool
	TaxonomyVersion string
}

// Result returns the metric label for the outcome.
func (o Outcome) Result() string {
	switch {
	case o.Degraded:
		return ResultDegraded
	case o.WasMapped:
		return ResultMapped
	default:
		return ResultUnmapped
	}
}

// Normalizer resolves the source system of an event and asks the
// standardizer for its canonical name. It never fails: any collaborator
// problem falls back to the raw event name.
type Normalizer struct {
	taxonomy       *Taxonomy
	standardizer   Standardizer
	platformSource string
}

// NewNormalizer creates a normalizer. A nil standardizer behaves like
// NoopStandardizer; a nil taxonomy uses DefaultTaxonomy.
func NewNormalizer(taxonomy *Taxonomy, standardizer Standardizer, platformSource string) *Normalizer {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	if standardizer == nil {
		standardizer = NoopStandardizer{}
	}
	if platformSource == "" {
		platformSource = DefaultPlatformSource
	}
	return &Normalizer{
		taxonomy:       taxonomy,
		standardizer:   standardizer,
		platformSource: platformSource,
	}
}

// Taxonomy returns the taxonomy in use.
func (n *Normalizer) Taxonomy() *Taxonomy {
	return n.taxonomy
}

// ResolveSource picks the source system:
// test mode, then the declared source, then the taxonomy, then the platform namespace.
func (n *Normalizer) ResolveSource(in Input) string {
	if in.TestMode {
		return SourceManualTest
	}
	if in.SourceSystem != "" {
		return in.SourceSystem
	}
	if source, ok := n.taxonomy.SourceFor(in.EventName); ok {
		return source
	}
	return n.platformSource
}

// Normalize resolves the source and canonical name for in.
func (n *Normalizer) Normalize(ctx context.Context, in Input) Outcome {
	out := Outcome{
		SourceSystem:    n.ResolveSource(in),
		EventName:       in.EventName,
		TaxonomyVersion: n.taxonomy.Version,
	}

	res, err := n.standardizer.Standardize(ctx, out.SourceSystem, in.EventName, in.ProjectID)
	switch {
	case err != nil:
		slog.Warn("Standardization failed, using raw event name",
			"source_system", out.SourceSystem,
			"event_name", in.EventName,
			"error", err)
		out.Degraded = true
		return out
	case res == nil || !res.Success || res.StandardizedEvent == "":
		slog.Warn("Standardization unsuccessful, using raw event name",
			"source_system", out.SourceSystem,
			"event_name", in.EventName)
		out.Degraded = true
		return out
	}

	out.EventName = res.StandardizedEvent
	out.WasMapped = res.WasMapped
	if out.EventName != in.EventName {
		out.OriginalEventName = in.EventName
	}
	return out
}

// Annotate returns metadata with the original event name recorded when it
// differs from the canonical one. The input map is not modified.
func (o Outcome) Annotate(metadata map[string]interface{}) map[string]interface{} {
	if o.OriginalEventName == "" {
		return metadata
	}
	out := make(map[string]interface{}, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out[MetadataOriginalEventName] = o.OriginalEventName
	return out
}

// MetadataOriginalEventName is the metadata key holding the pre-mapping name.
const MetadataOriginalEventName = "original_event_name"
