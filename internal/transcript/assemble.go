// Package transcript assembles recognized ASR segments into one utterance.
package transcript

import (
	"regexp"
	"strings"
)

// annotationPattern matches non-speech markers such as "[BLANK_AUDIO]",
// "(music)" or "*coughs*" that whisper models emit between words.
var annotationPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*`)

// Assemble joins segments, drops non-speech annotations, and collapses whitespace.
func Assemble(segments []string) string {
	if len(segments) == 0 {
		return ""
	}

	joined := strings.Join(segments, " ")
	joined = annotationPattern.ReplaceAllString(joined, " ")
	return strings.Join(strings.Fields(joined), " ")
}

// IsAnnotationOnly reports whether raw carries no speech once annotations are removed.
func IsAnnotationOnly(raw string) bool {
	return Assemble([]string{raw}) == ""
}
