package command

import "strings"

// Normalize lowercases text and splits it into ASCII-letter words.
// Every other character acts as a separator, so "entér" yields "ent" and
// "r". It backs the loose "enter" token check only; wake word matching uses
// Unicode word boundaries instead.
func Normalize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
}

// containsWord reports whether word appears as a normalized token of text.
func containsWord(text string, word string) bool {
	for _, token := range Normalize(text) {
		if token == word {
			return true
		}
	}
	return false
}
