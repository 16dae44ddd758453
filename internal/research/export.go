package research

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/ayush/research-dashboard/internal/models"
)

const markdownContentType = "text/markdown; charset=utf-8"

// RenderMarkdown renders a result as a standalone Markdown report.
func RenderMarkdown(query string, res *models.ResearchResult, generatedAt time.Time) []byte {
	var b bytes.Buffer
	a := res.Analytics

	fmt.Fprintf(&b, "# %s\n\n", strings.TrimSpace(query))
	fmt.Fprintf(&b, "_%s · Reading time: %s min · Generated %s_\n\n",
		a.Tone(), formatNumber(a.ReadingTimeMinutes), generatedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Executive Summary\n\n")
	if res.Summary != "" {
		b.WriteString(res.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("## Deep Dive\n\n")
	b.WriteString(res.EnhancedContent)
	b.WriteString("\n\n")

	b.WriteString("## Analytics\n\n")
	b.WriteString("| Metric | Score |\n|---|---|\n")
	fmt.Fprintf(&b, "| Complexity | %s |\n", formatNumber(a.Complexity))
	fmt.Fprintf(&b, "| Relevance | %s |\n", formatNumber(a.Relevance))
	fmt.Fprintf(&b, "| Sentiment | %s |\n\n", formatNumber(a.Sentiment))

	if len(a.KeyTopics) > 0 {
		b.WriteString("### Key Topics\n\n")
		for _, t := range a.KeyTopics {
			fmt.Fprintf(&b, "- %s (%s)\n", t.Name, formatNumber(t.Value))
		}
		b.WriteString("\n")
	}

	if len(res.Sources) > 0 {
		b.WriteString("## Sources\n\n")
		for i, s := range res.Sources {
			title := s.Title
			if title == "" {
				title = s.URI
			}
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, title, s.URI)
		}
	}
	return b.Bytes()
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.1f", f)
}
