package semantic

// Record is a single passage vector to persist. ID is the logical
// passage id, "chunk_<ordinal>", derived from the passage position only.
type Record struct {
	ID      string
	Vector  []float32
	Text    string
	Ordinal int
}

// Hit is a single similarity search result.
type Hit struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Text    string  `json:"text"`
	Ordinal int     `json:"ordinal"`
}
