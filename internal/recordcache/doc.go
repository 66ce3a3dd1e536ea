// Package recordcache persists fetched external company records between runs.
//
// The cache is a JSON object keyed by "external_<id>". A value is either a
// record object or null; null marks a confirmed absence (for example a 404)
// and is never re-fetched. Entries carry a schema_version; entries written by
// a newer schema, or missing external_id or name, are dropped on load and
// fetched again.
//
// # Storage
//
// The default location is ./goldstock_cache.json. Writes go to a temporary
// file that is renamed over the cache, so a crash leaves either the previous
// or the new file. Entries added since the last Flush are lost on a crash;
// they are simply fetched again on the next run.
//
// CLI commands for inspection and management:
//
//	goldmap cache stats   # record and negative counts
//	goldmap cache clear   # remove every entry
package recordcache
