// Package textutil provides the string similarity measures used for fuzzy
// company name matching.
//
// Scores are integers in [0, 100]. Ratio compares two strings character by
// character using the insertion/deletion edit distance; TokenSortRatio first
// lower-cases both inputs, splits them on anything that is not a letter or
// digit, sorts the tokens and rejoins them, so word order does not affect the
// score.
package textutil
