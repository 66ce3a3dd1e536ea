// Package preflight provides readiness checks for the files, directories and
// external directory site a mapping run depends on.
//
// The CLI "goldmap doctor" command runs RunAll and prints one line per check.
// Checks never modify state: directories are inspected, not created, and the
// site probe issues a single GET against the configured base URL.
package preflight
