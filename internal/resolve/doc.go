// Package resolve links internal companies to external records.
//
// BuildIndex prepares ticker and name lookup tables from the fetched records.
// Engine.Resolve then walks the internal companies in input order and tries,
// for each one, the tiers below; the first tier that produces a match wins:
//
//  1. a curated override for the company ID (status matched, method known_mapping)
//  2. the normalized ticker against the ticker index (confidence 100)
//  3. the normalized name against the name and alias index (confidence 95)
//  4. the best fuzzy score against every normalized record name, accepted at
//     or above the fuzzy floor; scores at or above the matched threshold are
//     matched, the rest need manual review
//
// Companies that no tier places are unmatched with confidence 0.
//
// Index keys collide when two records share a normalized ticker, name or
// alias. The record enumerated last wins; the number of overwritten keys is
// reported by Index.Collisions.
package resolve
