package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"eduagent-knowledge/internal/ai"
	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/internal/telemetry"
	"eduagent-knowledge/models"

	reflector "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	// MinQuestionWords is the excerpt length below which no model call is made
	MinQuestionWords = 20
	// questionCadence and questionChunkMinWords gate which chunks are offered
	questionCadence       = 3
	questionChunkMinWords = 50
	maxQuestionsPerChunk  = 3

	questionSchemaURL = "https://eduagent.local/schemas/suggested-questions.json"
)

// ErrInvalidQuestionOutput marks a model reply that does not match the schema
var ErrInvalidQuestionOutput = errors.New("invalid question output")

type questionOutput struct {
	Questions []questionItem `json:"questions" jsonschema:"description=List of suggested questions"`
}

type questionItem struct {
	Question string `json:"question" jsonschema:"minLength=1,description=The suggested question text"`
	Context  string `json:"context" jsonschema:"description=Brief context or reason for suggesting this question"`
}

const questionPromptTemplate = `You are an AI assistant that generates insightful questions based on educational video content.

Below is a transcript from a video. Please identify 1-3 key concepts that:
1. Are mentioned but not fully explained
2. Might be difficult to understand without prior knowledge
3. Would benefit from further explanation

For each concept, generate a question that a student might ask to learn more.

TRANSCRIPT:
%s

TIMESTAMP RANGE:
Start: %s seconds
End: %s seconds

%s`

// QuestionGenerator turns a transcript excerpt into suggested student
// questions. Generation is best-effort: Generate has no error return and any
// failure yields an empty list.
type QuestionGenerator struct {
	llm                ai.Completer
	timeout            time.Duration
	schema             *jsonschema.Schema
	formatInstructions string
	metrics            *telemetry.Metrics
}

func NewQuestionGenerator(llm ai.Completer, timeout time.Duration, metrics *telemetry.Metrics) (*QuestionGenerator, error) {
	r := &reflector.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	raw, err := json.MarshalIndent(r.Reflect(&questionOutput{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("reflect question schema: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode question schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(questionSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add question schema: %w", err)
	}
	schema, err := compiler.Compile(questionSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile question schema: %w", err)
	}

	return &QuestionGenerator{
		llm:     llm,
		timeout: timeout,
		schema:  schema,
		formatInstructions: "The output should be formatted as a JSON instance that conforms to the JSON schema below.\n\n" +
			"```json\n" + string(raw) + "\n```\n\nReturn only the JSON object.",
		metrics: metrics,
	}, nil
}

// ShouldGenerateQuestions is the orchestrator's cadence: every third chunk,
// and only when it carries more than 50 words.
func ShouldGenerateQuestions(chunkIndex int, text string) bool {
	return chunkIndex%questionCadence == 0 && WordCount(text) > questionChunkMinWords
}

// Generate returns up to three questions, each stamped with the MM:SS range.
func (g *QuestionGenerator) Generate(ctx context.Context, excerpt string, start, end float64) []models.SuggestedQuestion {
	if WordCount(excerpt) < MinQuestionWords {
		g.metrics.RecordQuestionGeneration("skipped")
		return nil
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	reply, err := g.llm.Complete(ctx, g.prompt(excerpt, start, end))
	if err != nil {
		logger.Warn("Question generation request failed", "error", err)
		g.metrics.RecordQuestionGeneration("failed")
		return nil
	}

	items, err := g.parse(reply)
	if err != nil {
		logger.Warn("Question generation output rejected", "error", err)
		g.metrics.RecordQuestionGeneration("failed")
		return nil
	}
	if len(items) == 0 {
		g.metrics.RecordQuestionGeneration("empty")
		return nil
	}

	startFmt, endFmt := models.FormatMS(start), models.FormatMS(end)
	questions := make([]models.SuggestedQuestion, 0, len(items))
	for _, item := range items {
		questions = append(questions, models.SuggestedQuestion{
			Question:  strings.TrimSpace(item.Question),
			Context:   strings.TrimSpace(item.Context),
			StartTime: startFmt,
			EndTime:   endFmt,
		})
	}
	g.metrics.RecordQuestionGeneration("ok")
	return questions
}

func (g *QuestionGenerator) prompt(excerpt string, start, end float64) string {
	return fmt.Sprintf(questionPromptTemplate,
		excerpt,
		formatSeconds(start),
		formatSeconds(end),
		g.formatInstructions,
	)
}

func (g *QuestionGenerator) parse(reply string) ([]questionItem, error) {
	body := extractJSONObject(reply)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrInvalidQuestionOutput)
	}

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuestionOutput, err)
	}
	if err := g.schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuestionOutput, err)
	}

	var out questionOutput
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuestionOutput, err)
	}

	items := make([]questionItem, 0, len(out.Questions))
	for _, q := range out.Questions {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		items = append(items, q)
		if len(items) == maxQuestionsPerChunk {
			break
		}
	}
	return items, nil
}

// extractJSONObject strips code fences and prose around the outermost object
func extractJSONObject(reply string) string {
	first := strings.Index(reply, "{")
	last := strings.LastIndex(reply, "}")
	if first < 0 || last <= first {
		return ""
	}
	return reply[first : last+1]
}

func formatSeconds(s float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", s), "0"), ".")
}
