package domain

// RecommendationMetadata describes the recommended article for display purposes
type RecommendationMetadata struct {
	Title       string   `json:"title"`
	Categories  []string `json:"categories,omitempty"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	ReadingTime int      `json:"readingTime,omitempty"` // minutes
	Popularity  float64  `json:"popularity,omitempty"`
}

// Recommendation is one scored candidate produced by the recommendation engine.
// Higher score means a stronger match. Batches supersede each other; individual
// recommendations are never mutated after creation.
type Recommendation struct {
	ArticleID string                 `json:"articleId"`
	Score     float64                `json:"score"`
	Reason    string                 `json:"reason"`
	Language  string                 `json:"language"`
	Article   Article                `json:"article"`
	Metadata  RecommendationMetadata `json:"metadata"`
}
