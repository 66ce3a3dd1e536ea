// Package checkpoint persists in-progress resolution state so an interrupted
// run can resume without reprocessing companies.
//
// The file holds {"processed_ids": [...], "mappings": [...]}. processed_ids
// is always recomputed from mappings when saving. A missing or unreadable file
// loads as an empty checkpoint. The file is removed once a run completes.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"goldmap/internal/company"
	"goldmap/internal/fileutil"
	"goldmap/internal/logging"
)

// Checkpoint is the persisted progress of a run.
type Checkpoint struct {
	ProcessedIDs []int             `json:"processed_ids"`
	Mappings     []company.Mapping `json:"mappings"`
}

// Empty reports whether nothing has been processed.
func (c Checkpoint) Empty() bool {
	return len(c.Mappings) == 0
}

// Remaining returns the entities whose IDs are not yet processed, in input
// order.
func (c Checkpoint) Remaining(entities []company.Entity) []company.Entity {
	done := make(map[int]struct{}, len(c.ProcessedIDs))
	for _, id := range c.ProcessedIDs {
		done[id] = struct{}{}
	}
	out := make([]company.Entity, 0, len(entities))
	for _, entity := range entities {
		if _, ok := done[entity.ID]; !ok {
			out = append(out, entity)
		}
	}
	return out
}

// FromMappings builds a checkpoint whose processed IDs mirror mappings.
func FromMappings(mappings []company.Mapping) Checkpoint {
	ids := make([]int, 0, len(mappings))
	for _, m := range mappings {
		ids = append(ids, m.CompanyID)
	}
	if mappings == nil {
		mappings = []company.Mapping{}
	}
	return Checkpoint{ProcessedIDs: ids, Mappings: mappings}
}

// Manager reads and writes the checkpoint file.
type Manager struct {
	path   string
	logger *slog.Logger
}

// New returns a manager for path. An empty path disables persistence.
func New(path string, logger *slog.Logger) *Manager {
	return &Manager{
		path:   strings.TrimSpace(path),
		logger: logging.NewComponentLogger(logger, "checkpoint"),
	}
}

// Path returns the checkpoint file path.
func (m *Manager) Path() string {
	return m.path
}

// Load returns the persisted checkpoint, or an empty one when the file is
// absent or cannot be decoded.
func (m *Manager) Load() Checkpoint {
	if m.path == "" {
		return FromMappings(nil)
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.warnCorrupt(err)
		}
		return FromMappings(nil)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		m.warnCorrupt(err)
		return FromMappings(nil)
	}

	kept := make([]company.Mapping, 0, len(cp.Mappings))
	seen := make(map[int]struct{}, len(cp.Mappings))
	for _, mapping := range cp.Mappings {
		if _, dup := seen[mapping.CompanyID]; dup || !mapping.Consistent() {
			m.logger.Warn("dropping checkpoint mapping",
				logging.String(logging.FieldEventType, "checkpoint_mapping_invalid"),
				logging.Int(logging.FieldCompanyID, mapping.CompanyID),
				logging.Bool("duplicate", dup))
			continue
		}
		seen[mapping.CompanyID] = struct{}{}
		kept = append(kept, mapping)
	}
	loaded := FromMappings(kept)
	if len(loaded.ProcessedIDs) != len(cp.ProcessedIDs) {
		m.logger.Warn("checkpoint processed ids disagree with mappings",
			logging.String(logging.FieldEventType, "checkpoint_ids_mismatch"),
			logging.Int("processed_ids", len(cp.ProcessedIDs)),
			logging.Int("mappings", len(kept)))
	}
	m.logger.Debug("loaded checkpoint",
		logging.Int("mappings", len(kept)),
		logging.String("path", m.path))
	return loaded
}

// Save overwrites the checkpoint with mappings.
func (m *Manager) Save(mappings []company.Mapping) error {
	if m.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(FromMappings(mappings), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := fileutil.WriteAtomic(m.path, data, 0o644); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	return nil
}

// Delete removes the checkpoint file; a missing file is not an error.
func (m *Manager) Delete() error {
	if m.path == "" {
		return nil
	}
	existed, err := fileutil.RemoveIfExists(m.path)
	if err != nil {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	if existed {
		m.logger.Info("checkpoint removed", logging.String("path", m.path))
	}
	return nil
}

func (m *Manager) warnCorrupt(err error) {
	logging.WarnWithContext(m.logger, "failed to load checkpoint", "checkpoint_load_failed",
		logging.Error(err),
		logging.String("path", m.path),
		logging.String(logging.FieldErrorHint, "run without --resume or clear the checkpoint"),
		logging.String(logging.FieldImpact, "resume starts from the beginning"))
}
