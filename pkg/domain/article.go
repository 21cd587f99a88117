package domain

import "strings"

// Article represents a single Wikipedia article normalized from the upstream API
type Article struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Excerpt      string   `json:"excerpt"`
	Content      string   `json:"content,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	Thumbnail    string   `json:"thumbnail,omitempty"`
	Language     string   `json:"language"`
	URL          string   `json:"url"`
	Categories   []string `json:"categories,omitempty"`
	LastModified string   `json:"lastModified,omitempty"`
	ImagePending bool     `json:"imagePending,omitempty"`

	// set only when the article was inserted by the recommendation engine
	Score            float64 `json:"score,omitempty"`
	IsRecommendation bool    `json:"isRecommendation,omitempty"`
}

// Key returns the de-duplication key for an article within a single list
func (a Article) Key() string {
	return a.ID + "/" + a.Language
}

// HasImage reports whether the article carries any usable image reference
func (a Article) HasImage() bool {
	return a.ImageURL != "" || a.Thumbnail != ""
}

// SupportedLanguages is the fixed set of content languages served
var SupportedLanguages = []string{"en", "es", "fr", "de", "it", "pt", "ru", "ja", "zh", "ar"}

// IsSupportedLanguage checks a language code against the supported set
func IsSupportedLanguage(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
