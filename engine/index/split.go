package index

const (
	// DefaultPassageSize is the passage length in runes.
	DefaultPassageSize = 1000
	// DefaultPassageOverlap is the number of runes shared by consecutive
	// passages.
	DefaultPassageOverlap = 200
)

// SplitPassages cuts text into fixed-size overlapping passages. Passage
// i starts at rune offset i*(size-overlap) and spans up to size runes;
// only the final passage may be shorter. Offsets count runes so
// multi-byte characters are never torn. Identical input yields
// identical output.
func SplitPassages(text string, size, overlap int) []Passage {
	if size <= 0 {
		size = DefaultPassageSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := size - overlap
	var out []Passage
	for start, ord := 0, 0; start < len(runes); start, ord = start+step, ord+1 {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, Passage{Ordinal: ord, Text: string(runes[start:end])})
		if end == len(runes) {
			break
		}
	}
	return out
}
