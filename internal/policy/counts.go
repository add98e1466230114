package policy

// CharCounts holds the per-class character counts for one candidate
// secret. Computed once per plaintext evaluation, never retained.
type CharCounts struct {
	Letters int
	Digits  int
	Special int
	Upper   int
	Lower   int
}

// AnalyzeComposition classifies every byte of the candidate into exactly
// one of digit, special, upper case or lower case in a single scan.
//
// Classification is byte-wise over the ASCII model: byte-range tests do
// not work for multibyte encodings, so non-ASCII bytes are counted as
// special characters rather than letters. This is deliberate and
// matches the historical acceptance semantics; do not swap in a
// Unicode-aware classification.
func AnalyzeComposition(s string) CharCounts {
	var c CharCounts
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b >= 'A' && b <= 'Z':
			c.Letters++
			c.Upper++
		case b >= 'a' && b <= 'z':
			c.Letters++
			c.Lower++
		case b >= '0' && b <= '9':
			c.Digits++
		default:
			c.Special++
		}
	}
	return c
}
