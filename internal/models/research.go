package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AgentStatus is the progress of a single search.
type AgentStatus string

const (
	StatusIdle      AgentStatus = "IDLE"
	StatusSearching AgentStatus = "SEARCHING"
	StatusAnalyzing AgentStatus = "ANALYZING"
	StatusCompleted AgentStatus = "COMPLETED"
	StatusError     AgentStatus = "ERROR"
)

// WebSource is a cited web page.
type WebSource struct {
	URI   string `json:"uri"   bson:"uri"`
	Title string `json:"title" bson:"title"`
}

// GroundingChunk is a citation returned by a search-grounded generation.
// Web is nil for non-web chunks.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty" bson:"web,omitempty"`
}

// KeyTopic is one sub-theme of the researched topic with its prominence (0-100).
type KeyTopic struct {
	Name  string  `json:"name"  bson:"name"`
	Value float64 `json:"value" bson:"value"`
}

// TopicAnalytics are the dashboard metrics produced by the analytics pass.
type TopicAnalytics struct {
	Complexity         float64    `json:"complexity"         bson:"complexity"`
	Relevance          float64    `json:"relevance"          bson:"relevance"`
	Sentiment          float64    `json:"sentiment"          bson:"sentiment"`
	ReadingTimeMinutes float64    `json:"readingTimeMinutes" bson:"reading_time_minutes"`
	KeyTopics          []KeyTopic `json:"keyTopics"          bson:"key_topics"`
}

// Tone labels the sentiment score.
func (a TopicAnalytics) Tone() string {
	switch {
	case a.Sentiment > 60:
		return "Positive Tone"
	case a.Sentiment < 40:
		return "Critical Tone"
	default:
		return "Neutral Tone"
	}
}

// ResearchResult is the composed output of one search.
type ResearchResult struct {
	Summary         string           `json:"summary"         bson:"summary"`
	EnhancedContent string           `json:"enhancedContent" bson:"enhanced_content"`
	GroundingChunks []GroundingChunk `json:"groundingChunks" bson:"grounding_chunks"`
	Sources         []WebSource      `json:"sources"         bson:"sources"`
	Analytics       TopicAnalytics   `json:"analytics"       bson:"analytics"`
}

// HistoryItem is a completed search stored in MongoDB.
type HistoryItem struct {
	ID        primitive.ObjectID `json:"id"         bson:"_id,omitempty"`
	UserID    string             `json:"user_id"    bson:"user_id"`
	Query     string             `json:"query"      bson:"query"`
	Result    ResearchResult     `json:"result"     bson:"result"`
	ExportKey string             `json:"export_key" bson:"export_key"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// SearchRequest is the JSON body for POST /api/research.
type SearchRequest struct {
	Query string `json:"query"`
}
