package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ContentHash returns the content-addressed digest for a document's raw
// content within a space: the hex SHA-256 of "{spaceID}:{content}".
// Deterministic for identical inputs - no randomness, no time component -
// so an unchanged source item always hashes to the stored value and
// re-ingestion can be skipped.
func ContentHash(spaceID, content string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", spaceID, content)))
	return hex.EncodeToString(sum[:])
}

// UniqueKey returns the identity digest for a source item: the hex SHA-256
// of "{documentType}:{stableID}:{spaceID}". Source items mapping to the
// same logical entity across repeated syncs produce the same key even when
// their content changed.
func UniqueKey(docType DocumentType, stableID, spaceID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", docType, stableID, spaceID)))
	return hex.EncodeToString(sum[:])
}
