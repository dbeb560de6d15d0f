package chunker

import "strings"

// CountWords counts whitespace-separated words. Selection budgets are
// expressed in these units.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
