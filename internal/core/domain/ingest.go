package domain

import "time"

// SourceItem is the normalised tuple a connector produces for ingestion.
// Connectors themselves live outside the engine.
type SourceItem struct {
	// StableID is the connector-native stable identifier for this item.
	StableID string

	// DocumentType classifies the item.
	DocumentType DocumentType

	// Title is the human-readable title.
	Title string

	// RawContent is the full normalised text of the item.
	RawContent string

	// Metadata contains connector-specific key-value pairs.
	Metadata map[string]any

	// UpdatedAt is the item's upstream modification time.
	UpdatedAt time.Time
}

// ItemFailure records one failed item of an ingestion batch, with enough
// context for operator-visible logs.
type ItemFailure struct {
	// StableID is the failing item's source identifier.
	StableID string

	// Err describes what went wrong.
	Err error
}

// IngestReport is the outcome of one ingestion batch. Skips are counted
// separately from creates and updates for observability.
type IngestReport struct {
	// Created counts documents seen for the first time.
	Created int

	// Updated counts documents whose content hash changed.
	Updated int

	// Skipped counts items whose content hash matched the stored one;
	// no writes were performed for them.
	Skipped int

	// Failed counts items that errored. A failed item never aborts its
	// siblings.
	Failed int

	// Failures holds the per-item errors.
	Failures []ItemFailure
}
