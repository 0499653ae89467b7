package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrEmptyTranscript     = errors.New("transcription returned no transcript")
)

// Transcriber turns a media file into timed text
type Transcriber interface {
	Transcribe(ctx context.Context, filePath string) (*Transcript, error)
}

// TranscriptionClient talks to an OpenAI-compatible speech-to-text endpoint.
// One client is built at startup and reused for every video.
type TranscriptionClient struct {
	client *resty.Client
	model  string
}

type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

type transcriptionError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewTranscriptionClient(baseURL, apiKey, model string, timeout time.Duration) *TranscriptionClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
		return r != nil && (r.StatusCode() == 429 || r.StatusCode() >= 500)
	})
	return &TranscriptionClient{client: client, model: model}
}

func (c *TranscriptionClient) Transcribe(ctx context.Context, filePath string) (*Transcript, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}

	var out transcriptionResponse
	var apiErr transcriptionError
	resp, err := c.client.R().
		SetContext(ctx).
		SetFile("file", filePath).
		SetFormData(map[string]string{
			"model":           c.model,
			"response_format": "verbose_json",
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/audio/transcriptions")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("%w: %s", ErrTranscriptionFailed, msg)
	}

	// Text is kept byte-for-byte: the aligner's positions are segment text
	// lengths and must line up with offsets into the full text.
	transcript := &Transcript{
		Text:     out.Text,
		Language: out.Language,
		Segments: make([]TranscriptSegment, 0, len(out.Segments)),
	}
	for _, s := range out.Segments {
		transcript.Segments = append(transcript.Segments, TranscriptSegment{
			Text:  s.Text,
			Start: s.Start,
			End:   s.End,
		})
	}
	sort.SliceStable(transcript.Segments, func(i, j int) bool {
		return transcript.Segments[i].Start < transcript.Segments[j].Start
	})
	return transcript, nil
}

// Close releases idle connections held by the underlying transport
func (c *TranscriptionClient) Close() {
	c.client.GetClient().CloseIdleConnections()
}
