// Package main hosts the goldmap CLI entrypoint and command graph.
//
// The Cobra command tree runs the mapping pipeline and exposes operator
// utilities for the record cache, the resume checkpoint, run history, the
// normalization rules and configuration scaffolding. It centralizes config
// resolution and logger setup so subcommands stay declarative while the
// work lives in the internal packages.
package main
