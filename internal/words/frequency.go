package words

import "iter"

// Frequencies maps a token to the number of times it occurred.
type Frequencies map[string]int

// Count builds the frequency map of a token sequence.
func Count(tokens iter.Seq[string]) Frequencies {
	freq := make(Frequencies)
	for token := range tokens {
		freq[token]++
	}
	return freq
}

// CountSlice is Count for an already materialized token list.
func CountSlice(tokens []string) Frequencies {
	freq := make(Frequencies, len(tokens))
	for _, token := range tokens {
		freq[token]++
	}
	return freq
}

// Total returns the number of tokens counted, duplicates included.
func (f Frequencies) Total() int {
	total := 0
	for _, n := range f {
		total += n
	}
	return total
}

// Unique returns the number of distinct tokens.
func (f Frequencies) Unique() int {
	return len(f)
}

// Merge adds every count of other into f.
func (f Frequencies) Merge(other Frequencies) {
	for token, n := range other {
		f[token] += n
	}
}

// Clone returns an independent copy of f.
func (f Frequencies) Clone() Frequencies {
	out := make(Frequencies, len(f))
	for token, n := range f {
		out[token] = n
	}
	return out
}
