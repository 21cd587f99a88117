package domain

import "time"

// LikedArticle is a persisted like record, kept until explicitly unliked
type LikedArticle struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Article   Article   `json:"article"`
}
