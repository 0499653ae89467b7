package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// chunkSeparators is tried in order: paragraph, line, sentence, word, character.
var chunkSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits text recursively on chunkSeparators so that every chunk fits
// the configured size, sharing up to overlap characters with its neighbour.
// Lengths are counted in runes (the splitter default). Output is deterministic for a given input.
type Chunker struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 {
		return nil, errors.New("chunk overlap cannot be negative")
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return &Chunker{
		size:    size,
		overlap: overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(chunkSeparators),
		),
	}, nil
}

// Split never fails: empty or whitespace-only text yields no chunks.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		// the recursive splitter only errors on invalid options, which NewChunker rules out
		return []string{strings.TrimSpace(text)}
	}
	chunks := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		chunks = append(chunks, piece)
	}
	return chunks
}

// Size returns the configured maximum chunk length in runes
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in runes
func (c *Chunker) Overlap() int { return c.overlap }

// WordCount counts whitespace-separated words
func WordCount(text string) int {
	return len(strings.Fields(text))
}
