package index

import (
	"fmt"
	"time"
)

// Passage is a fixed-size slice of the document text. Ordinal is the
// passage position; it never changes for a given document and settings.
type Passage struct {
	Ordinal int
	Text    string
}

// PassageID returns the logical store id for a passage ordinal.
func PassageID(ordinal int) string {
	return fmt.Sprintf("chunk_%d", ordinal)
}

// Stats summarizes a completed build.
type Stats struct {
	Passages int
	Batches  int
	Duration time.Duration
}
