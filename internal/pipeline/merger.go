package pipeline

import "strings"

// mergeWindow is the maximum number of boundary words compared when
// deduplicating overlap between adjacent chunk texts. Chunk overlap is a
// few seconds of speech, which rarely exceeds five words of repetition.
const mergeWindow = 5

// MergeTexts joins chunk transcriptions in order, removing duplicated
// words at each boundary. Empty texts are skipped.
func MergeTexts(texts []string) string {
	var merged string
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if merged == "" {
			merged = text
			continue
		}
		merged = joinWithOverlap(merged, text)
	}
	return merged
}

// joinWithOverlap concatenates two texts, dropping the longest run of up
// to mergeWindow words that ends the left text and starts the right one.
// Texts shorter than two words are joined as-is; there is not enough
// signal to call a one-word match a real overlap.
func joinWithOverlap(left, right string) string {
	leftWords := strings.Fields(left)
	rightWords := strings.Fields(right)

	if len(leftWords) < 2 || len(rightWords) < 2 {
		return left + " " + right
	}

	window := mergeWindow
	if len(leftWords) < window {
		window = len(leftWords)
	}
	if len(rightWords) < window {
		window = len(rightWords)
	}

	overlap := 0
	for n := window; n >= 1; n-- {
		if wordsMatch(leftWords[len(leftWords)-n:], rightWords[:n]) {
			overlap = n
			break
		}
	}

	return strings.Join(append(leftWords, rightWords[overlap:]...), " ")
}

// wordsMatch compares word runs token by token. Tokens must match
// exactly, case and punctuation included; a boundary the engine
// rendered differently across chunks is not treated as an overlap.
func wordsMatch(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
