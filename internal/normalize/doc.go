// Package normalize turns raw tickers and company names into comparison keys.
//
// Tickers lose exchange prefixes (TSX:, CVE:, ...), listing suffixes (.V,
// .TO, ...) and punctuation. Names are folded to lower-case ASCII where
// possible and lose one trailing corporate or industry word per suffix rule,
// applied in order in a single pass. Aliases derives the alternate spellings a
// company page is commonly referred to by.
//
// Every function here is total: empty input yields an empty key.
package normalize
