package words

import "sort"

// RankedToken pairs a token with its frequency.
type RankedToken struct {
	Frequency int    `json:"frequency"`
	Token     string `json:"token"`
}

// Rank orders freq by descending frequency, breaking ties by ascending token.
// Tokens are sorted alphabetically first and then stably by frequency so that
// equal frequencies keep their alphabetical order.
func Rank(freq Frequencies) []RankedToken {
	ranked := make([]RankedToken, 0, len(freq))
	for token, n := range freq {
		ranked = append(ranked, RankedToken{Frequency: n, Token: token})
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Token < ranked[j].Token
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Frequency > ranked[j].Frequency
	})

	return ranked
}

// Top returns at most n entries of Rank(freq).
func Top(freq Frequencies, n int) []RankedToken {
	ranked := Rank(freq)
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
