package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	docCalls   [][]string
	queryCalls int
	fail       bool
}

func (e *countingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, errors.New("provider down")
	}
	e.docCalls = append(e.docCalls, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (e *countingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.queryCalls++
	return []float32{float32(len(text))}, nil
}

func TestCachedEmbedderOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachedEmbedder(inner, 16)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := cached.EmbedDocuments(ctx, []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, first)

	second, err := cached.EmbedDocuments(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}, {1}}, second)

	require.Len(t, inner.docCalls, 2)
	assert.Equal(t, []string{"ccc"}, inner.docCalls[1])
	assert.Equal(t, 3, cached.Len())
}

func TestCachedEmbedderQuery(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachedEmbedder(inner, 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		vec, err := cached.EmbedQuery(context.Background(), "what is entropy")
		require.NoError(t, err)
		assert.Equal(t, []float32{15}, vec)
	}
	assert.Equal(t, 1, inner.queryCalls)
}

func TestCachedEmbedderPropagatesErrors(t *testing.T) {
	cached, err := NewCachedEmbedder(&countingEmbedder{fail: true}, 4)
	require.NoError(t, err)

	_, err = cached.EmbedDocuments(context.Background(), []string{"x"})
	assert.Error(t, err)
	assert.Equal(t, 0, cached.Len())
}

func TestNewCachedEmbedderRejectsZeroSize(t *testing.T) {
	_, err := NewCachedEmbedder(&countingEmbedder{}, 0)
	assert.Error(t, err)
}
