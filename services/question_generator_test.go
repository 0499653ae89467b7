package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "entropy"
	}
	return strings.Join(parts, " ")
}

const twoQuestions = "```json\n" + `{"questions":[
  {"question":"What is a closed system?","context":"Mentioned without definition"},
  {"question":"Why does entropy increase?","context":"Second law is assumed"}
]}` + "\n```"

func newTestGenerator(t *testing.T, llm *fakeCompleter) *QuestionGenerator {
	t.Helper()
	g, err := NewQuestionGenerator(llm, 0, nil)
	require.NoError(t, err)
	return g
}

func TestQuestionGenerationSkipsShortExcerpts(t *testing.T) {
	llm := &fakeCompleter{reply: twoQuestions}
	g := newTestGenerator(t, llm)

	got := g.Generate(context.Background(), words(10), 0, 30)

	assert.Empty(t, got)
	assert.Equal(t, 0, llm.calls)
}

func TestQuestionGenerationCallsModelOnce(t *testing.T) {
	llm := &fakeCompleter{reply: twoQuestions}
	g := newTestGenerator(t, llm)

	got := g.Generate(context.Background(), words(60), 65, 130.5)

	assert.Equal(t, 1, llm.calls)
	require.Len(t, got, 2)
	assert.Equal(t, "What is a closed system?", got[0].Question)
	assert.Equal(t, "Mentioned without definition", got[0].Context)
	for _, q := range got {
		assert.Equal(t, "01:05", q.StartTime)
		assert.Equal(t, "02:10", q.EndTime)
	}

	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "identify 1-3 key concepts")
	assert.Contains(t, prompt, "Start: 65 seconds")
	assert.Contains(t, prompt, "End: 130.5 seconds")
	assert.Contains(t, prompt, `"questions"`)
}

func TestQuestionGenerationSwallowsModelErrors(t *testing.T) {
	llm := &fakeCompleter{err: errors.New("quota exceeded")}
	g := newTestGenerator(t, llm)

	assert.Empty(t, g.Generate(context.Background(), words(40), 0, 10))
	assert.Equal(t, 1, llm.calls)
}

func TestQuestionGenerationRejectsMalformedOutput(t *testing.T) {
	cases := map[string]string{
		"not json":         "I think students would ask about entropy.",
		"missing context":  `{"questions":[{"question":"What is entropy?"}]}`,
		"wrong type":       `{"questions":"What is entropy?"}`,
		"missing list":     `{"answers":[]}`,
		"empty question":   `{"questions":[{"question":"","context":"x"}]}`,
		"truncated object": `{"questions":[{"question":"What`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			g := newTestGenerator(t, &fakeCompleter{reply: reply})
			assert.Empty(t, g.Generate(context.Background(), words(30), 0, 10))
		})
	}
}

func TestQuestionGenerationCapsAtThree(t *testing.T) {
	reply := `{"questions":[
		{"question":"Q1","context":"c"},{"question":"Q2","context":"c"},
		{"question":"Q3","context":"c"},{"question":"Q4","context":"c"}]}`
	g := newTestGenerator(t, &fakeCompleter{reply: reply})

	got := g.Generate(context.Background(), words(30), 0, 10)
	require.Len(t, got, 3)
	assert.Equal(t, "Q3", got[2].Question)
}

func TestShouldGenerateQuestions(t *testing.T) {
	assert.True(t, ShouldGenerateQuestions(0, words(51)))
	assert.True(t, ShouldGenerateQuestions(3, words(80)))
	assert.False(t, ShouldGenerateQuestions(0, words(50)))
	assert.False(t, ShouldGenerateQuestions(1, words(80)))
	assert.False(t, ShouldGenerateQuestions(5, words(80)))
}
