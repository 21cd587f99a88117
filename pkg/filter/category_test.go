package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Category:Physics", "Physics"},
		{"Physics", "Physics"},
		{"Quantum mechanics (physics)", "Quantum mechanics"},
		{"Category:Births from 1984", "Births"},
		{"Articles with dead links from May 2020", "Articles with dead links"},
		{"  Category:  History  ", "History"},
		{"Category:", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCategory(tt.in))
		})
	}
}

func TestUsableCategories(t *testing.T) {
	raw := []string{
		"Category:Physics",
		"Category:Wikidata entries",         // wikidata
		"Category:Hidden categories",        // hidden
		"Category:All stub articles",        // stub + articles
		"Category:CS1 maint",                // cs1
		"Category:Pages with script errors", // pages
		"Category:Physics",                  // duplicate
		"category:PHYSICS",                  // duplicate, different case
		"Category:Quantum mechanics",
	}

	got := UsableCategories(raw)
	assert.Equal(t, []string{"Physics", "Quantum mechanics"}, got)
}

func TestUsableCategories_Empty(t *testing.T) {
	assert.Empty(t, UsableCategories(nil))
	assert.Empty(t, UsableCategories([]string{"Category:Hidden categories"}))
}
