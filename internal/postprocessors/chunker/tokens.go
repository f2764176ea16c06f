package chunker

import "strings"

// CountTokens estimates the token count of text. The estimator is a
// whitespace word count: crude next to a real model tokenizer, but
// deterministic, fast, and close enough to keep chunks inside the
// embedding model's context window with the default budgets.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}
