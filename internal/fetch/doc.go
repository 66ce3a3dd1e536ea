// Package fetch scans a range of external IDs with a bounded pool of workers,
// reading through the record cache so that no ID is ever fetched twice.
//
// Completions are collected in arrival order. A cancelled context stops the
// scan at the next completion boundary: no further IDs are dispatched,
// in-flight fetches are left to finish on their own and their results are
// dropped. The records gathered so far are returned.
package fetch
