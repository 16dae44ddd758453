package research

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayush/research-dashboard/internal/models"
)

func TestSplitSections(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantSummary  string
		wantEnhanced string
	}{
		{
			name:         "both sections",
			raw:          "SECTION 1: EXECUTIVE SUMMARY\nFoo\nSECTION 2: ENHANCED DEEP DIVE\nBar",
			wantSummary:  "Foo",
			wantEnhanced: "Bar",
		},
		{
			name:         "no markers",
			raw:          "Just one blob",
			wantSummary:  "Just one blob",
			wantEnhanced: "Just one blob",
		},
		{
			name:         "only first section",
			raw:          "SECTION 1: EXECUTIVE SUMMARY\nOnly summary",
			wantSummary:  "Only summary",
			wantEnhanced: "SECTION 1: EXECUTIVE SUMMARY\nOnly summary",
		},
		{
			name:         "empty second section",
			raw:          "SECTION 1: Foo\nSECTION 2: ENHANCED DEEP DIVE\n   ",
			wantSummary:  "Foo",
			wantEnhanced: "SECTION 1: Foo\nSECTION 2: ENHANCED DEEP DIVE\n   ",
		},
		{
			name:         "labels stripped once",
			raw:          "SECTION 1: EXECUTIVE SUMMARY EXECUTIVE SUMMARY\nSECTION 2: ENHANCED DEEP DIVE ENHANCED DEEP DIVE",
			wantSummary:  "EXECUTIVE SUMMARY",
			wantEnhanced: "ENHANCED DEEP DIVE",
		},
		{
			name:         "repeated second marker keeps text between markers",
			raw:          "Sum\nSECTION 2: Body\nSECTION 2: Tail",
			wantSummary:  "Sum",
			wantEnhanced: "Body",
		},
		{
			name:         "empty text",
			raw:          "",
			wantSummary:  "",
			wantEnhanced: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, enhanced := SplitSections(tt.raw)
			assert.Equal(t, tt.wantSummary, summary)
			assert.Equal(t, tt.wantEnhanced, enhanced)
		})
	}
}

func TestUniqueSources(t *testing.T) {
	chunks := []models.GroundingChunk{
		{Web: &models.WebSource{URI: "https://a.example", Title: "First A"}},
		{},
		{Web: &models.WebSource{URI: "https://b.example", Title: "B"}},
		{Web: &models.WebSource{URI: "https://a.example", Title: "Second A"}},
	}

	got := UniqueSources(chunks)
	assert.Equal(t, []models.WebSource{
		{URI: "https://a.example", Title: "First A"},
		{URI: "https://b.example", Title: "B"},
	}, got)

	assert.NotNil(t, UniqueSources(nil))
	assert.Empty(t, UniqueSources(nil))
}

func TestCompose(t *testing.T) {
	analytics := models.TopicAnalytics{Complexity: 10}
	res := Compose("SECTION 1: EXECUTIVE SUMMARY\nS\nSECTION 2: ENHANCED DEEP DIVE\nD", nil, analytics)

	assert.Equal(t, "S", res.Summary)
	assert.Equal(t, "D", res.EnhancedContent)
	assert.NotNil(t, res.GroundingChunks)
	assert.NotNil(t, res.Sources)
	assert.Equal(t, analytics, res.Analytics)
}
