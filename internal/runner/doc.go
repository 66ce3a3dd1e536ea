// Package runner drives one end-to-end mapping run.
//
// A run takes the single-instance lock, loads the internal company list and
// operator overrides, applies resume and clear-cache options, fetches the
// external directory through the record cache, resolves every company, and
// then verifies logos, archives the run in history and removes the checkpoint
// when nothing was interrupted. Durable writes along the way are best effort:
// failures are logged and the in-memory result stands.
package runner
