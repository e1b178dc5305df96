package objectives

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	camelBoundary  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	gameModePrefix = regexp.MustCompile(`(?i)^(?:dungeon|activity)[_\s-]*`)
	trailingDigits = regexp.MustCompile(`[_\s-]*\d+$`)
	tokenSeparator = regexp.MustCompile(`[^A-Za-z0-9]+`)
	digitRun       = regexp.MustCompile(`\d+`)
)

// PrettifyIdentifier turns a raw identifier such as "DireWolf_alpha" into
// "Dire Wolf Alpha".
func PrettifyIdentifier(id string) string {
	s := camelBoundary.ReplaceAllString(strings.TrimSpace(id), "$1 $2")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = upperFirst(w)
	}
	return strings.Join(words, " ")
}

// GameModeFallbackLabel derives a readable name for a game mode the dataset
// does not know: "DungeonShatteredObelisk01" becomes "Shattered Obelisk".
func GameModeFallbackLabel(gameModeID string) string {
	id := strings.TrimSpace(gameModeID)
	s := gameModePrefix.ReplaceAllString(id, "")
	s = trailingDigits.ReplaceAllString(s, "")
	s = camelBoundary.ReplaceAllString(s, "$1 $2")
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
	if s == "" {
		return id
	}
	return s
}

// ExtractZoneID picks the zone a task points at. A POI tag's trailing numeric
// token wins, then its first digit run, then a positive territory id.
// It returns "" when none applies.
func ExtractZoneID(poiTag string, territoryID int) string {
	tag := strings.TrimSpace(poiTag)
	if tag != "" {
		tokens := tokenSeparator.Split(tag, -1)
		for i := len(tokens) - 1; i >= 0; i-- {
			if tokens[i] == "" {
				continue
			}
			if isDigits(tokens[i]) {
				return tokens[i]
			}
			break
		}
		if run := digitRun.FindString(tag); run != "" {
			return run
		}
	}
	if territoryID > 0 {
		return strconv.Itoa(territoryID)
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
