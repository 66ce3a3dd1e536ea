// Package company defines the records that flow through a mapping run.
//
// An Entity is one row of the internal source list (numeric ID, name and an
// optional TSX code). A Record is one company page scraped from the external
// provider. A Mapping is the single outcome the resolution engine emits for
// each Entity and is what ends up in the checkpoint, the output table and the
// run history.
//
// Values in this package are treated as immutable once constructed; callers
// copy rather than mutate them.
package company
