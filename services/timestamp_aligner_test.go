package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduagent-knowledge/models"
)

func TestAlignerSingleSegment(t *testing.T) {
	a := NewTimestampAligner([]TranscriptSegment{{Text: "hello", Start: 0, End: 2}})

	assert.Equal(t, models.TimestampRange{Start: 0, End: 2}, a.Resolve(Span{Start: 0, End: 5}))
}

func TestAlignerFallsBackToOuterBounds(t *testing.T) {
	a := NewTimestampAligner([]TranscriptSegment{{Text: "hello", Start: 0, End: 2}})

	// no segment covers [10,20): first start and last end
	assert.Equal(t, models.TimestampRange{Start: 0, End: 2}, a.Resolve(Span{Start: 10, End: 20}))
}

func TestAlignerEmptyIndex(t *testing.T) {
	a := NewTimestampAligner(nil)
	assert.Equal(t, models.TimestampRange{}, a.Resolve(Span{Start: 0, End: 10}))
}

func TestAlignerPositionIndex(t *testing.T) {
	a := NewTimestampAligner([]TranscriptSegment{
		{Text: " Héllo", Start: 0, End: 1.5},
		{Text: " world", Start: 1.5, End: 3},
	})
	require.Len(t, a.Segments(), 2)
	assert.Equal(t, models.TimestampSegment{StartPos: 0, EndPos: 6, StartTime: 0, EndTime: 1.5}, a.Segments()[0])
	assert.Equal(t, models.TimestampSegment{StartPos: 6, EndPos: 12, StartTime: 1.5, EndTime: 3}, a.Segments()[1])
}

func TestAlignerSpanAcrossSegments(t *testing.T) {
	a := NewTimestampAligner([]TranscriptSegment{
		{Text: "aaaaa", Start: 0, End: 2},
		{Text: "bbbbb", Start: 2, End: 4},
		{Text: "ccccc", Start: 4, End: 7.5},
	})

	assert.Equal(t, models.TimestampRange{Start: 0, End: 4}, a.Resolve(Span{Start: 2, End: 10}))
	assert.Equal(t, models.TimestampRange{Start: 2, End: 7.5}, a.Resolve(Span{Start: 5, End: 15}))
	// end beyond the transcript falls back to the last segment
	assert.Equal(t, models.TimestampRange{Start: 4, End: 7.5}, a.Resolve(Span{Start: 12, End: 40}))
}

func TestLocateChunksSkipsEarlierDuplicates(t *testing.T) {
	full := "intro. repeat me. middle. repeat me. outro."
	spans := LocateChunks(full, []string{"intro.", "repeat me.", "middle.", "repeat me.", "outro."})

	require.Len(t, spans, 5)
	assert.Equal(t, Span{Start: 7, End: 17}, spans[1])
	assert.Equal(t, Span{Start: 26, End: 36}, spans[3])
}

func TestLocateChunksHandlesOverlap(t *testing.T) {
	full := "alpha beta gamma delta"
	spans := LocateChunks(full, []string{"alpha beta gamma", "gamma delta"})

	assert.Equal(t, []Span{{Start: 0, End: 16}, {Start: 11, End: 22}}, spans)
}

func TestLocateChunksMissingChunk(t *testing.T) {
	full := "one two three"
	spans := LocateChunks(full, []string{"one", "zzz", "three"})

	assert.Equal(t, Span{Start: 3, End: 3}, spans[1])
	assert.Equal(t, Span{Start: 8, End: 13}, spans[2])
}

func TestLocateChunksCountsRunes(t *testing.T) {
	full := "café au lait, s'il vous plaît"
	spans := LocateChunks(full, []string{"café au lait,", "s'il vous plaît"})

	assert.Equal(t, Span{Start: 0, End: 13}, spans[0])
	assert.Equal(t, Span{Start: 14, End: 29}, spans[1])
}

// Chunks emitted in text order over chronological segments never move back in time.
func TestTimestampMonotonicity(t *testing.T) {
	var (
		segments []TranscriptSegment
		sb       strings.Builder
	)
	for i := 0; i < 60; i++ {
		text := fmt.Sprintf(" Segment %d talks about topic %d in some detail.", i, i%5)
		segments = append(segments, TranscriptSegment{Text: text, Start: float64(i) * 4, End: float64(i)*4 + 3.9})
		sb.WriteString(text)
	}
	full := sb.String()

	chunker, err := NewChunker(300, 60)
	require.NoError(t, err)
	chunks := chunker.Split(full)
	require.Greater(t, len(chunks), 3)

	aligner := NewTimestampAligner(segments)
	spans := LocateChunks(full, chunks)

	prev := models.TimestampRange{Start: -1}
	for i, span := range spans {
		r := aligner.Resolve(span)
		assert.LessOrEqual(t, r.Start, r.End, "chunk %d", i)
		assert.GreaterOrEqual(t, r.Start, prev.Start, "chunk %d starts before chunk %d", i, i-1)
		prev = r
	}
}

func TestFormatTimestamps(t *testing.T) {
	assert.Equal(t, "00:00:00", models.FormatHMS(0))
	assert.Equal(t, "01:01:01", models.FormatHMS(3661.99))
	assert.Equal(t, "00:02:05", models.FormatHMS(125.7))

	assert.Equal(t, "02:05", models.FormatMS(125.7))
	assert.Equal(t, "61:01", models.FormatMS(3661))

	meta := models.TimestampRange{Start: 65, End: 130}.Formatted()
	assert.Equal(t, "00:01:05 - 00:02:10", meta.TimestampRange)
}
