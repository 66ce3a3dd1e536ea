package recordcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"goldmap/internal/company"
)

// SchemaVersion is the version written with every cached record.
const SchemaVersion = 1

// ErrSchemaVersion marks an entry written by a newer, unknown schema.
var ErrSchemaVersion = errors.New("unsupported cache schema version")

var errMissingField = errors.New("missing required field")

// entry is the on-disk form of a cached record.
type entry struct {
	SchemaVersion int      `json:"schema_version"`
	ExternalID    string   `json:"external_id"`
	Name          string   `json:"name"`
	Ticker        *string  `json:"ticker"`
	Exchange      *string  `json:"exchange"`
	Aliases       []string `json:"aliases"`
}

func encodeEntry(rec *company.Record) any {
	if rec == nil {
		return nil
	}
	e := entry{
		SchemaVersion: SchemaVersion,
		ExternalID:    rec.ExternalID,
		Name:          rec.Name,
		Aliases:       rec.Aliases,
	}
	if rec.Ticker != "" {
		e.Ticker = &rec.Ticker
	}
	if rec.Exchange != "" {
		e.Exchange = &rec.Exchange
	}
	return e
}

// decodeEntry converts one cached value. A JSON null yields (nil, nil): a
// durable negative. Optional fields default to absent and aliases default to
// the canonical name.
func decodeEntry(raw json.RawMessage) (*company.Record, error) {
	if strings.TrimSpace(string(raw)) == "null" {
		return nil, nil
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	if e.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrSchemaVersion, e.SchemaVersion)
	}
	e.ExternalID = strings.TrimSpace(e.ExternalID)
	e.Name = strings.TrimSpace(e.Name)
	if e.ExternalID == "" {
		return nil, fmt.Errorf("%w: external_id", errMissingField)
	}
	if e.Name == "" {
		return nil, fmt.Errorf("%w: name", errMissingField)
	}
	rec := company.Record{ExternalID: e.ExternalID, Name: e.Name}
	if e.Ticker != nil {
		rec.Ticker = strings.TrimSpace(*e.Ticker)
	}
	if e.Exchange != nil {
		rec.Exchange = strings.TrimSpace(*e.Exchange)
	}
	rec.Aliases = e.Aliases
	rec = rec.WithAliases()
	return &rec, nil
}
