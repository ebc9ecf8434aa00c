package lesson

import (
	"strings"

	"golang.org/x/text/width"
)

// NormalizeOptionKey folds learner input into the canonical option key form:
// full-width characters become their ASCII forms ("Ｂ" -> "B") and letters are
// upper-cased.
func NormalizeOptionKey(input string) string {
	return strings.ToUpper(width.Fold.String(strings.TrimSpace(input)))
}
