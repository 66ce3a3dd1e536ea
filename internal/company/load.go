package company

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrMissingName marks an input row with a blank company_name.
	ErrMissingName = errors.New("company_name is required")
	// ErrDuplicateID marks an input row whose company_id was already seen.
	ErrDuplicateID = errors.New("duplicate company_id")
)

// Rejected is an input row left out of the entity list.
type Rejected struct {
	Index  int // position in the input array
	ID     int
	Reason error
}

func (r Rejected) Error() string {
	return fmt.Sprintf("company at index %d (id %d): %v", r.Index, r.ID, r.Reason)
}

func (r Rejected) Unwrap() error { return r.Reason }

// LoadEntities reads the internal company list from a JSON array file. A
// positive limit caps the number of input rows considered.
func LoadEntities(path string, limit int) ([]Entity, []Rejected, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read companies: %w", err)
	}
	return ParseEntities(data, limit)
}

// ParseEntities decodes the internal company list. Rows with a blank name or
// a repeated ID are skipped and reported; the first row for an ID is kept.
// Only a malformed document is an error.
func ParseEntities(data []byte, limit int) ([]Entity, []Rejected, error) {
	var raw []Entity
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode companies: %w", err)
	}
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
	}
	entities := make([]Entity, 0, len(raw))
	var rejected []Rejected
	seen := make(map[int]struct{}, len(raw))
	for i, entity := range raw {
		entity.Name = strings.TrimSpace(entity.Name)
		if entity.Name == "" {
			rejected = append(rejected, Rejected{Index: i, ID: entity.ID, Reason: ErrMissingName})
			continue
		}
		if _, dup := seen[entity.ID]; dup {
			rejected = append(rejected, Rejected{Index: i, ID: entity.ID, Reason: ErrDuplicateID})
			continue
		}
		seen[entity.ID] = struct{}{}
		entities = append(entities, entity)
	}
	return entities, rejected, nil
}
