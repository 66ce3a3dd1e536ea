package textutil

import "math"

// Ratio returns 100 * 2*LCS / (len(a)+len(b)), rounded half to even, where
// LCS is the longest common subsequence of runes. Two empty strings score 0.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}
	common := lcsLength(ra, rb)
	return int(math.RoundToEven(100 * float64(2*common) / float64(total)))
}

// TokenSortRatio scores a and b after sorting their tokens. Inputs without
// any letters or digits score 0.
func TokenSortRatio(a, b string) int {
	sa, sb := SortedTokens(a), SortedTokens(b)
	if sa == "" || sb == "" {
		return 0
	}
	return Ratio(sa, sb)
}

func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
