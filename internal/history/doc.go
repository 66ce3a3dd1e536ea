// Package history archives completed and interrupted runs in SQLite.
//
// Each run stores its summary counts and the full mapping table it wrote, so
// operators can compare runs or recover an older table after a bad scrape.
// The schema is applied from embedded, ordered migrations on Open.
package history
