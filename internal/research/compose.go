package research

import (
	"strings"

	"github.com/ayush/research-dashboard/internal/models"
)

// Section markers the research prompt asks the model to emit.
const (
	markerSection1 = "SECTION 1:"
	markerSection2 = "SECTION 2:"
	labelSummary   = "EXECUTIVE SUMMARY"
	labelDeepDive  = "ENHANCED DEEP DIVE"
)

// SplitSections splits raw model text into summary and deep dive. Missing or
// malformed markers degrade gracefully: with no usable second section the
// deep dive is the whole text, unmodified.
func SplitSections(raw string) (summary, enhanced string) {
	parts := strings.Split(raw, markerSection2)

	summary = strings.Replace(parts[0], markerSection1, "", 1)
	summary = strings.TrimSpace(strings.Replace(summary, labelSummary, "", 1))

	if len(parts) > 1 {
		enhanced = strings.TrimSpace(strings.Replace(parts[1], labelDeepDive, "", 1))
	}
	if enhanced == "" {
		enhanced = raw
	}
	return summary, enhanced
}

// Compose builds the result of one search.
func Compose(raw string, chunks []models.GroundingChunk, analytics models.TopicAnalytics) *models.ResearchResult {
	summary, enhanced := SplitSections(raw)
	if chunks == nil {
		chunks = []models.GroundingChunk{}
	}
	return &models.ResearchResult{
		Summary:         summary,
		EnhancedContent: enhanced,
		GroundingChunks: chunks,
		Sources:         UniqueSources(chunks),
		Analytics:       analytics,
	}
}

// UniqueSources returns the web sources of chunks in order, keeping the first
// chunk seen for each URI.
func UniqueSources(chunks []models.GroundingChunk) []models.WebSource {
	sources := []models.WebSource{}
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if c.Web == nil {
			continue
		}
		if _, ok := seen[c.Web.URI]; ok {
			continue
		}
		seen[c.Web.URI] = struct{}{}
		sources = append(sources, *c.Web)
	}
	return sources
}
