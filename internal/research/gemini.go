package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ErrMissingAPIKey is returned by every generation call when no API key was configured.
var ErrMissingAPIKey = errors.New("gemini: API key is not configured")

// Generator issues a single generateContent request. *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeneratorConfig configures NewGenerator.
type GeneratorConfig struct {
	APIKey            string
	RequestsPerSecond float64
	Burst             int
}

// NewGenerator creates a Gemini API generator paced by a token bucket.
// An empty API key yields a generator whose calls all fail with ErrMissingAPIKey.
func NewGenerator(ctx context.Context, cfg GeneratorConfig) (Generator, error) {
	var gen Generator = missingKeyGenerator{}
	if cfg.APIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create GenAI client: %w", err)
		}
		gen = client.Models
	}
	if cfg.RequestsPerSecond <= 0 {
		return gen, nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &pacedGenerator{
		next:    gen,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}, nil
}

type missingKeyGenerator struct{}

func (missingKeyGenerator) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, ErrMissingAPIKey
}

// pacedGenerator waits for a rate-limit token before each call.
type pacedGenerator struct {
	next    Generator
	limiter *rate.Limiter
}

func (p *pacedGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gemini rate limit wait: %w", err)
	}
	return p.next.GenerateContent(ctx, model, contents, config)
}

// responseText concatenates the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
