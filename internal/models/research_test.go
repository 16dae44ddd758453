package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicAnalytics_Tone(t *testing.T) {
	tests := []struct {
		sentiment float64
		want      string
	}{
		{100, "Positive Tone"},
		{60.5, "Positive Tone"},
		{60, "Neutral Tone"},
		{50, "Neutral Tone"},
		{40, "Neutral Tone"},
		{39.9, "Critical Tone"},
		{0, "Critical Tone"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TopicAnalytics{Sentiment: tt.sentiment}.Tone(), "sentiment %v", tt.sentiment)
	}
}
