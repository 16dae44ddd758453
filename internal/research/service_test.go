package research

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/ayush/research-dashboard/internal/models"
)

func TestGather(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, generateCall) (*genai.GenerateContentResponse, error) {
		return textResponse("SECTION 1: hello",
			webChunk("https://a.example", "A"),
			&genai.GroundingChunk{},
		), nil
	}}
	r := NewResearcher(gen, WithModel("gemini-test"))

	got, err := r.Gather(context.Background(), "quantum computing")
	require.NoError(t, err)
	assert.Equal(t, "SECTION 1: hello", got.Text)
	assert.Equal(t, []models.GroundingChunk{
		{Web: &models.WebSource{URI: "https://a.example", Title: "A"}},
		{},
	}, got.GroundingChunks)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "gemini-test", calls[0].model)
	assert.Contains(t, calls[0].prompt, `"quantum computing"`)
	assert.Contains(t, calls[0].prompt, "SECTION 1: EXECUTIVE SUMMARY")
	assert.Contains(t, calls[0].prompt, "SECTION 2: ENHANCED DEEP DIVE")
	require.Len(t, calls[0].config.Tools, 1)
	assert.NotNil(t, calls[0].config.Tools[0].GoogleSearch)
	assert.Empty(t, calls[0].config.ResponseMIMEType)
}

func TestGather_Defaults(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, generateCall) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	}}
	got, err := NewResearcher(gen).Gather(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, NoContentText, got.Text)
	assert.NotNil(t, got.GroundingChunks)
	assert.Empty(t, got.GroundingChunks)
	assert.Equal(t, DefaultModel, gen.Calls()[0].model)
}

func TestGather_SkipsThoughtParts(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, generateCall) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "answer "},
				{Text: "continued"},
			}},
		}}}, nil
	}}
	got, err := NewResearcher(gen).Gather(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "answer continued", got.Text)
}

func TestGather_PropagatesError(t *testing.T) {
	boom := errors.New("backend unavailable")
	gen := &fakeGenerator{respond: func(int, generateCall) (*genai.GenerateContentResponse, error) {
		return nil, boom
	}}
	_, err := NewResearcher(gen).Gather(context.Background(), "x")
	require.ErrorIs(t, err, boom)
	assert.Len(t, gen.Calls(), 1)
}

func TestGather_CallTimeout(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, generateCall) (*genai.GenerateContentResponse, error) {
		return textResponse("late"), nil
	}}
	blocking := generatorFunc(func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		<-ctx.Done()
		return gen.GenerateContent(ctx, model, contents, cfg)
	})
	_, err := NewResearcher(blocking, WithCallTimeout(10*time.Millisecond)).Gather(context.Background(), "x")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyze(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, generateCall) (*genai.GenerateContentResponse, error) {
		return textResponse(`{"complexity":72,"relevance":90,"sentiment":65.5,"readingTimeMinutes":4,
			"keyTopics":[{"name":"Qubits","value":80},{"name":"Error correction","value":60}]}`), nil
	}}
	got := NewResearcher(gen).Analyze(context.Background(), "some text")

	assert.Equal(t, models.TopicAnalytics{
		Complexity:         72,
		Relevance:          90,
		Sentiment:          65.5,
		ReadingTimeMinutes: 4,
		KeyTopics: []models.KeyTopic{
			{Name: "Qubits", Value: 80},
			{Name: "Error correction", Value: 60},
		},
	}, got)

	call := gen.Calls()[0]
	assert.Equal(t, "application/json", call.config.ResponseMIMEType)
	require.NotNil(t, call.config.ResponseSchema)
	assert.Equal(t, genai.TypeObject, call.config.ResponseSchema.Type)
	assert.ElementsMatch(t,
		[]string{"complexity", "relevance", "sentiment", "readingTimeMinutes", "keyTopics"},
		call.config.ResponseSchema.Required)
	assert.Equal(t, genai.TypeArray, call.config.ResponseSchema.Properties["keyTopics"].Type)
	assert.Empty(t, call.config.Tools)
	assert.Contains(t, call.prompt, "some text")
}

func TestAnalyze_Truncates(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, generateCall) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("ignored")
	}}
	body := strings.Repeat("a", 8000) + "TAIL"
	NewResearcher(gen).Analyze(context.Background(), body)

	prompt := gen.Calls()[0].prompt
	assert.Contains(t, prompt, strings.Repeat("a", 8000))
	assert.NotContains(t, prompt, "TAIL")
}

func TestAnalyze_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		respond func(int, generateCall) (*genai.GenerateContentResponse, error)
	}{
		{"request error", func(int, generateCall) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("quota exceeded")
		}},
		{"empty reply", func(int, generateCall) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		}},
		{"malformed json", func(int, generateCall) (*genai.GenerateContentResponse, error) {
			return textResponse(`{"complexity": "high"`), nil
		}},
		{"wrong types", func(int, generateCall) (*genai.GenerateContentResponse, error) {
			return textResponse(`{"complexity": "high"}`), nil
		}},
		{"null reply", func(int, generateCall) (*genai.GenerateContentResponse, error) {
			return textResponse(`null`), nil
		}},
		{"empty object", func(int, generateCall) (*genai.GenerateContentResponse, error) {
			return textResponse(`{}`), nil
		}},
		{"partial object", func(int, generateCall) (*genai.GenerateContentResponse, error) {
			return textResponse(`{"complexity":10}`), nil
		}},
		{"null key topics", func(int, generateCall) (*genai.GenerateContentResponse, error) {
			return textResponse(`{"complexity":1,"relevance":2,"sentiment":3,"readingTimeMinutes":4,"keyTopics":null}`), nil
		}},
		{"null score", func(int, generateCall) (*genai.GenerateContentResponse, error) {
			return textResponse(`{"complexity":null,"relevance":2,"sentiment":3,"readingTimeMinutes":4,"keyTopics":[]}`), nil
		}},
	}
	want := models.TopicAnalytics{
		Complexity:         50,
		Relevance:          80,
		Sentiment:          50,
		ReadingTimeMinutes: 2,
		KeyTopics:          []models.KeyTopic{{Name: "Analysis Failed", Value: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewResearcher(&fakeGenerator{respond: tt.respond}).Analyze(context.Background(), "")
			assert.Equal(t, want, got)
		})
	}
}

func TestAnalyze_EmptyKeyTopicsAccepted(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, generateCall) (*genai.GenerateContentResponse, error) {
		return textResponse(`{"complexity":0,"relevance":0,"sentiment":0,"readingTimeMinutes":0,"keyTopics":[]}`), nil
	}}
	got := NewResearcher(gen).Analyze(context.Background(), "text")
	assert.Equal(t, models.TopicAnalytics{KeyTopics: []models.KeyTopic{}}, got)
}

func TestAnalyze_FallbackIsFresh(t *testing.T) {
	a := FallbackAnalytics()
	a.KeyTopics[0].Name = "mutated"
	assert.Equal(t, "Analysis Failed", FallbackAnalytics().KeyTopics[0].Name)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "héé", truncateRunes("héééé", 3))
	assert.Equal(t, "", truncateRunes("abc", 0))
}

type generatorFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

func (f generatorFunc) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return f(ctx, model, contents, cfg)
}
