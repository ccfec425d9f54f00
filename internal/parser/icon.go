package parser

import (
	"strings"

	"github.com/UnknownOlympus/mnemosyne/internal/models"
)

var (
	maleMarkers   = []string{"style]=male", "style=male"}
	femaleMarkers = []string{"style]=female", "style=female"}
)

// InferIcon guesses the avatar category from the style query of a photo URL.
// Matching is a case-sensitive substring search and male markers are checked first.
func InferIcon(photo string) models.Icon {
	if photo == "" {
		return models.IconUnknown
	}

	if containsAny(photo, maleMarkers) {
		return models.IconMale
	}
	if containsAny(photo, femaleMarkers) {
		return models.IconFemale
	}

	return models.IconUnknown
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
