// Package overrides loads the curated company_id -> goldstock_id mappings
// that bypass automated matching.
//
// A table file may be JSON or YAML (.yaml/.yml) and may take any of three
// shapes: a list of entries, an object with an "overrides" list, or an object
// keyed by company_id. Without a file the built-in table of hand-verified
// mappings is used.
package overrides

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.json
var builtinTable []byte

// Override pins an internal company to an external record.
type Override struct {
	CompanyID    int     `json:"company_id" yaml:"company_id"`
	ExternalID   string  `json:"goldstock_id" yaml:"goldstock_id"`
	ExternalName string  `json:"goldstock_name" yaml:"goldstock_name"`
	Confidence   float64 `json:"confidence_score" yaml:"confidence_score"`
}

// Table is an immutable set of overrides keyed by company ID. The zero value
// is an empty table.
type Table struct {
	entries map[int]Override
}

// Lookup returns the override for companyID.
func (t Table) Lookup(companyID int) (Override, bool) {
	o, ok := t.entries[companyID]
	return o, ok
}

// Len returns the number of overrides.
func (t Table) Len() int {
	return len(t.entries)
}

// Entries returns the overrides ordered by company ID.
func (t Table) Entries() []Override {
	out := make([]Override, 0, len(t.entries))
	for _, o := range t.entries {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyID < out[j].CompanyID })
	return out
}

// Builtin returns the built-in table.
func Builtin() Table {
	table, err := parse(builtinTable, false)
	if err != nil {
		panic(fmt.Sprintf("builtin overrides: %v", err))
	}
	return table
}

// Load reads the table at path, or returns Builtin when path is empty.
func Load(path string) (Table, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read overrides: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	table, err := parse(data, ext == ".yaml" || ext == ".yml")
	if err != nil {
		return Table{}, fmt.Errorf("overrides %s: %w", path, err)
	}
	return table, nil
}

func parse(data []byte, isYAML bool) (Table, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF")))
	if len(data) == 0 {
		return Table{entries: map[int]Override{}}, nil
	}
	var (
		entries []Override
		err     error
	)
	if isYAML {
		entries, err = decodeYAML(data)
	} else {
		entries, err = decodeJSON(data)
	}
	if err != nil {
		return Table{}, err
	}
	return build(entries)
}

func decodeJSON(data []byte) ([]Override, error) {
	if data[0] == '[' {
		var entries []Override
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return entries, nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if list, ok := probe["overrides"]; ok {
		var entries []Override
		if err := json.Unmarshal(list, &entries); err != nil {
			return nil, fmt.Errorf("decode json overrides: %w", err)
		}
		return entries, nil
	}
	keyed := make(map[string]Override, len(probe))
	for key, raw := range probe {
		var o Override
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("decode json entry %q: %w", key, err)
		}
		keyed[key] = o
	}
	return fromKeyed(keyed)
}

func decodeYAML(data []byte) ([]Override, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]
	if doc.Kind == yaml.SequenceNode {
		var entries []Override
		if err := doc.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return entries, nil
	}
	var wrapper struct {
		Overrides []Override `yaml:"overrides"`
	}
	if err := doc.Decode(&wrapper); err == nil && wrapper.Overrides != nil {
		return wrapper.Overrides, nil
	}
	var keyed map[string]Override
	if err := doc.Decode(&keyed); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return fromKeyed(keyed)
}

// fromKeyed converts the company_id-keyed shape; the key supplies the ID.
func fromKeyed(keyed map[string]Override) ([]Override, error) {
	entries := make([]Override, 0, len(keyed))
	for key, o := range keyed {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("company id %q is not an integer", key)
		}
		o.CompanyID = id
		entries = append(entries, o)
	}
	return entries, nil
}

var errInvalidOverride = errors.New("invalid override")

func build(entries []Override) (Table, error) {
	table := Table{entries: make(map[int]Override, len(entries))}
	for i, o := range entries {
		o.ExternalID = strings.TrimSpace(o.ExternalID)
		o.ExternalName = strings.TrimSpace(o.ExternalName)
		if o.Confidence == 0 {
			o.Confidence = 100
		}
		switch {
		case o.CompanyID <= 0:
			return Table{}, fmt.Errorf("%w at index %d: company_id must be positive", errInvalidOverride, i)
		case o.ExternalID == "":
			return Table{}, fmt.Errorf("%w for company %d: goldstock_id is required", errInvalidOverride, o.CompanyID)
		case o.Confidence < 0 || o.Confidence > 100:
			return Table{}, fmt.Errorf("%w for company %d: confidence_score must be in (0, 100]", errInvalidOverride, o.CompanyID)
		}
		if _, dup := table.entries[o.CompanyID]; dup {
			return Table{}, fmt.Errorf("%w: duplicate company_id %d", errInvalidOverride, o.CompanyID)
		}
		table.entries[o.CompanyID] = o
	}
	return table, nil
}
