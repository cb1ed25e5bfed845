package query

// StopWords are English function words. They score a flat amount and are
// dropped from queries unless stop-word matching is on.
var StopWords = toSet(
	"a", "about", "after", "all", "also", "an", "and", "any", "are", "as",
	"at", "be", "because", "been", "but", "by", "can", "could", "did", "do",
	"does", "for", "from", "had", "has", "have", "he", "her", "his", "how",
	"i", "if", "in", "into", "is", "it", "its", "just", "me", "my", "no",
	"not", "of", "on", "only", "or", "our", "out", "she", "so", "some",
	"such", "than", "that", "the", "their", "them", "then", "there", "these",
	"they", "this", "those", "to", "too", "up", "us", "very", "was", "we",
	"were", "what", "when", "where", "which", "while", "who", "why", "will",
	"with", "would", "you", "your",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// IsStopWord reports whether s is a stop word. s must be lower case.
func IsStopWord(s string) bool {
	_, ok := StopWords[s]
	return ok
}
