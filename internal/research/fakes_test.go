package research

import (
	"context"
	"sync"

	"google.golang.org/genai"
)

type generateCall struct {
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

// fakeGenerator records calls and answers them with respond.
type fakeGenerator struct {
	mu      sync.Mutex
	calls   []generateCall
	respond func(call int, c generateCall) (*genai.GenerateContentResponse, error)
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var prompt string
	for _, c := range contents {
		for _, p := range c.Parts {
			prompt += p.Text
		}
	}
	call := generateCall{model: model, prompt: prompt, config: config}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	n := len(f.calls) - 1
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.respond(n, call)
}

func (f *fakeGenerator) Calls() []generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]generateCall(nil), f.calls...)
}

func textResponse(text string, chunks ...*genai.GroundingChunk) *genai.GenerateContentResponse {
	cand := &genai.Candidate{
		Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
	}
	if len(chunks) > 0 {
		cand.GroundingMetadata = &genai.GroundingMetadata{GroundingChunks: chunks}
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{cand}}
}

func webChunk(uri, title string) *genai.GroundingChunk {
	return &genai.GroundingChunk{Web: &genai.GroundingChunkWeb{URI: uri, Title: title}}
}
