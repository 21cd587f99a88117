package domain

import "time"

// InteractionType represents the kind of user action recorded against an article
type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionLike     InteractionType = "like"
	InteractionDislike  InteractionType = "dislike"
	InteractionClick    InteractionType = "click"
	InteractionRead     InteractionType = "read"
	InteractionShare    InteractionType = "share"
	InteractionBookmark InteractionType = "bookmark"
)

// Valid reports whether the type is one of the known interaction kinds
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionLike, InteractionDislike, InteractionClick,
		InteractionRead, InteractionShare, InteractionBookmark:
		return true
	}
	return false
}

// InteractionMetadata carries optional engagement measurements
type InteractionMetadata struct {
	TimeSpent      int     `json:"timeSpent,omitempty"`      // milliseconds
	ScrollDepth    float64 `json:"scrollDepth,omitempty"`    // 0..1
	ViewportTime   int     `json:"viewportTime,omitempty"`   // milliseconds
	ReadPercentage float64 `json:"readPercentage,omitempty"` // 0..1
}

// Interaction is an immutable record of a single user action
type Interaction struct {
	ArticleID  string               `json:"articleId"`
	Type       InteractionType      `json:"type"`
	Language   string               `json:"language"`
	Timestamp  time.Time            `json:"timestamp"`
	Categories []string             `json:"categories,omitempty"`
	Metadata   *InteractionMetadata `json:"metadata,omitempty"`
}
