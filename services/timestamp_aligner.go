package services

import (
	"strings"
	"unicode/utf8"

	"eduagent-knowledge/models"
)

// TranscriptSegment is one span of recognized speech
type TranscriptSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the transcription collaborator's output
type Transcript struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
	Language string              `json:"language"`
}

// Span is a half-open [Start, End) rune range within the full transcript
type Span struct {
	Start int
	End   int
}

// TimestampAligner maps character spans of a transcript back to time ranges.
//
// Segment positions are derived by accumulating segment text lengths in order,
// assuming segments are contiguous and chronological. This is an approximation:
// when the full transcript text is not the exact concatenation of the segment
// texts, or segments overlap in time, the error carries into the resolved ranges.
type TimestampAligner struct {
	index []models.TimestampSegment
}

// NewTimestampAligner builds the position index once per transcript
func NewTimestampAligner(segments []TranscriptSegment) *TimestampAligner {
	index := make([]models.TimestampSegment, 0, len(segments))
	pos := 0
	for _, seg := range segments {
		n := utf8.RuneCountInString(seg.Text)
		index = append(index, models.TimestampSegment{
			StartPos:  pos,
			EndPos:    pos + n,
			StartTime: seg.Start,
			EndTime:   seg.End,
		})
		pos += n
	}
	return &TimestampAligner{index: index}
}

// Segments exposes the position index
func (a *TimestampAligner) Segments() []models.TimestampSegment {
	return a.index
}

// Resolve returns the time range of a span. The start comes from the segment
// containing span.Start, the end from the first segment whose end reaches
// span.End. Unresolved bounds fall back to the first segment's start and the
// last segment's end. With no segments the range is zero.
func (a *TimestampAligner) Resolve(span Span) models.TimestampRange {
	if len(a.index) == 0 {
		return models.TimestampRange{}
	}

	var (
		start, end         float64
		haveStart, haveEnd bool
	)
	for _, seg := range a.index {
		if seg.StartPos <= span.Start && span.Start < seg.EndPos {
			start, haveStart = seg.StartTime, true
		}
		if seg.StartPos < span.End && seg.EndPos >= span.End {
			end, haveEnd = seg.EndTime, true
			break
		}
	}
	if !haveStart {
		start = a.index[0].StartTime
	}
	if !haveEnd {
		end = a.index[len(a.index)-1].EndTime
	}
	if end < start {
		end = start
	}
	return models.TimestampRange{Start: start, End: end}
}

// LocateChunks finds each chunk's rune span in fullText, in emission order.
// Each search starts at the end of the previous chunk's span so that repeated
// text cannot resolve to an earlier occurrence. Chunks that overlap their
// predecessor are not found there, so the search is retried just past the
// previous chunk's start. A chunk found nowhere gets an empty span at the cursor.
func LocateChunks(fullText string, chunks []string) []Span {
	spans := make([]Span, len(chunks))
	cursor := 0
	prevStart := -1
	for i, chunk := range chunks {
		at := indexFrom(fullText, chunk, cursor)
		if at < 0 && prevStart >= 0 {
			at = indexFrom(fullText, chunk, prevStart+1)
		}
		if at < 0 {
			pos := utf8.RuneCountInString(fullText[:cursor])
			spans[i] = Span{Start: pos, End: pos}
			continue
		}
		end := at + len(chunk)
		startRunes := utf8.RuneCountInString(fullText[:at])
		spans[i] = Span{Start: startRunes, End: startRunes + utf8.RuneCountInString(chunk)}
		prevStart = at
		cursor = end
	}
	return spans
}

// indexFrom is strings.Index starting at byte offset from
func indexFrom(s, substr string, from int) int {
	if from > len(s) {
		return -1
	}
	i := strings.Index(s[from:], substr)
	if i < 0 {
		return -1
	}
	return from + i
}
