package telegram

import "unicode/utf8"

const (
	MaxMessageLength = 4096
)

// SplitMessage cuts text into chunks of at most maxLength bytes, preferring
// newline boundaries near the end of a chunk and never splitting a UTF-8
// sequence.
func SplitMessage(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var chunks []string
	remaining := text

	for len(remaining) > 0 {
		if len(remaining) <= maxLength {
			chunks = append(chunks, remaining)
			break
		}

		splitIndex := maxLength
		for splitIndex > 0 && !utf8.RuneStart(remaining[splitIndex]) {
			splitIndex--
		}
		for i := splitIndex - 1; i >= maxLength-200 && i > 0; i-- {
			if remaining[i] == '\n' {
				splitIndex = i
				break
			}
		}
		if splitIndex == 0 {
			splitIndex = maxLength
		}

		chunks = append(chunks, remaining[:splitIndex])
		remaining = remaining[splitIndex:]
	}

	return chunks
}
