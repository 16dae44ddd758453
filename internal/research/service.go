package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ayush/research-dashboard/internal/logging"
	"github.com/ayush/research-dashboard/internal/models"
)

const (
	DefaultModel             = "gemini-2.5-flash"
	DefaultAnalyticsMaxChars = 8000

	// NoContentText replaces an empty research reply.
	NoContentText = "No content generated."
)

const researchPrompt = `
You are an expert research agent.
Research the following topic: %q.

Provide a response in two distinct sections:

SECTION 1: EXECUTIVE SUMMARY
A concise, high-level overview of the topic (approx 100 words).

SECTION 2: ENHANCED DEEP DIVE
A structured, easy-to-read detailed explanation. Use bullet points, bold text for key terms, and clear paragraph breaks.
Explain complex concepts simply.

Ensure the information is accurate and up-to-date based on the search results.
`

const analyticsPrompt = `
Analyze the following text and provide structural metrics for a dashboard.

Text to analyze:
"""
%s
"""

Return a JSON object with:
1. complexity: A score 0-100 (0=Simple, 100=Academic/Dense).
2. relevance: A score 0-100 indicating how information-dense the text is.
3. sentiment: A score 0-100 (0=Negative, 50=Neutral, 100=Positive).
4. readingTimeMinutes: Estimated reading time (number).
5. keyTopics: An array of exactly 5 objects, each having a "name" (string) and "value" (number 0-100) representing the prominence of sub-themes.
`

// analyticsSchema constrains the analytics reply.
var analyticsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"complexity":         {Type: genai.TypeNumber},
		"relevance":          {Type: genai.TypeNumber},
		"sentiment":          {Type: genai.TypeNumber},
		"readingTimeMinutes": {Type: genai.TypeNumber},
		"keyTopics": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":  {Type: genai.TypeString},
					"value": {Type: genai.TypeNumber},
				},
			},
		},
	},
	Required: []string{"complexity", "relevance", "sentiment", "readingTimeMinutes", "keyTopics"},
}

// FallbackAnalytics returns the metrics substituted when the analytics pass fails.
func FallbackAnalytics() models.TopicAnalytics {
	return models.TopicAnalytics{
		Complexity:         50,
		Relevance:          80,
		Sentiment:          50,
		ReadingTimeMinutes: 2,
		KeyTopics:          []models.KeyTopic{{Name: "Analysis Failed", Value: 0}},
	}
}

// Gathered is the output of the grounded research call.
type Gathered struct {
	Text            string
	GroundingChunks []models.GroundingChunk
}

// Researcher issues the two generation requests of a search.
type Researcher struct {
	gen         Generator
	model       string
	callTimeout time.Duration
	maxChars    int
	log         *zap.Logger
}

// ResearcherOption customizes a Researcher.
type ResearcherOption func(*Researcher)

// WithModel sets the model identifier used for both calls.
func WithModel(model string) ResearcherOption {
	return func(r *Researcher) {
		if model != "" {
			r.model = model
		}
	}
}

// WithCallTimeout bounds each generation call. Zero disables the deadline.
func WithCallTimeout(d time.Duration) ResearcherOption {
	return func(r *Researcher) { r.callTimeout = d }
}

// WithAnalyticsMaxChars sets how much of the research text the analytics pass sees.
func WithAnalyticsMaxChars(n int) ResearcherOption {
	return func(r *Researcher) {
		if n > 0 {
			r.maxChars = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ResearcherOption {
	return func(r *Researcher) { r.log = logging.OrNop(l) }
}

func NewResearcher(gen Generator, opts ...ResearcherOption) *Researcher {
	r := &Researcher{
		gen:      gen,
		model:    DefaultModel,
		maxChars: DefaultAnalyticsMaxChars,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Gather runs the search-grounded research call for a non-empty query.
func (r *Researcher) Gather(ctx context.Context, query string) (*Gathered, error) {
	ctx, cancel := r.withDeadline(ctx)
	defer cancel()

	start := time.Now()
	resp, err := r.gen.GenerateContent(ctx, r.model, genai.Text(fmt.Sprintf(researchPrompt, query)), &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini research: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		text = NoContentText
	}
	chunks := groundingChunks(resp)

	r.log.Debug("research call completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_len", len(text)),
		zap.Int("grounding_chunks", len(chunks)))

	return &Gathered{Text: text, GroundingChunks: chunks}, nil
}

// Analyze runs the schema-constrained analytics call. It never fails: any
// request or decode error yields FallbackAnalytics.
func (r *Researcher) Analyze(ctx context.Context, content string) models.TopicAnalytics {
	analytics, err := r.analyze(ctx, content)
	if err != nil {
		r.log.Warn("analytics generation failed, using fallback", zap.Error(err))
		return FallbackAnalytics()
	}
	return analytics
}

func (r *Researcher) analyze(ctx context.Context, content string) (models.TopicAnalytics, error) {
	ctx, cancel := r.withDeadline(ctx)
	defer cancel()

	prompt := fmt.Sprintf(analyticsPrompt, truncateRunes(content, r.maxChars))
	resp, err := r.gen.GenerateContent(ctx, r.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analyticsSchema,
	})
	if err != nil {
		return models.TopicAnalytics{}, fmt.Errorf("gemini analytics: %w", err)
	}

	jsonText := responseText(resp)
	if jsonText == "" {
		return models.TopicAnalytics{}, errors.New("no analytics generated")
	}

	return decodeAnalytics(jsonText)
}

// analyticsReply mirrors the response schema; nil fields were not sent.
type analyticsReply struct {
	Complexity         *float64          `json:"complexity"`
	Relevance          *float64          `json:"relevance"`
	Sentiment          *float64          `json:"sentiment"`
	ReadingTimeMinutes *float64          `json:"readingTimeMinutes"`
	KeyTopics          []models.KeyTopic `json:"keyTopics"`
}

// decodeAnalytics parses an analytics reply, rejecting replies that omit a
// required field or send null for it.
func decodeAnalytics(jsonText string) (models.TopicAnalytics, error) {
	var reply *analyticsReply
	if err := json.Unmarshal([]byte(jsonText), &reply); err != nil {
		return models.TopicAnalytics{}, fmt.Errorf("decode analytics: %w", err)
	}
	if reply == nil {
		return models.TopicAnalytics{}, errors.New("decode analytics: null reply")
	}

	var missing []string
	if reply.Complexity == nil {
		missing = append(missing, "complexity")
	}
	if reply.Relevance == nil {
		missing = append(missing, "relevance")
	}
	if reply.Sentiment == nil {
		missing = append(missing, "sentiment")
	}
	if reply.ReadingTimeMinutes == nil {
		missing = append(missing, "readingTimeMinutes")
	}
	if reply.KeyTopics == nil {
		missing = append(missing, "keyTopics")
	}
	if len(missing) > 0 {
		return models.TopicAnalytics{}, fmt.Errorf("decode analytics: missing %s", strings.Join(missing, ", "))
	}

	return models.TopicAnalytics{
		Complexity:         *reply.Complexity,
		Relevance:          *reply.Relevance,
		Sentiment:          *reply.Sentiment,
		ReadingTimeMinutes: *reply.ReadingTimeMinutes,
		KeyTopics:          reply.KeyTopics,
	}, nil
}

func (r *Researcher) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.callTimeout)
}

// groundingChunks copies the first candidate's grounding chunks. The result is never nil.
func groundingChunks(resp *genai.GenerateContentResponse) []models.GroundingChunk {
	chunks := []models.GroundingChunk{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return chunks
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm == nil {
		return chunks
	}
	for _, c := range gm.GroundingChunks {
		if c == nil {
			continue
		}
		var chunk models.GroundingChunk
		if c.Web != nil {
			chunk.Web = &models.WebSource{URI: c.Web.URI, Title: c.Web.Title}
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// truncateRunes returns at most n characters of s.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
