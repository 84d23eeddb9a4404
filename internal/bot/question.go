package bot

import (
	"strings"
	"unicode/utf8"
)

// minQuestionLen filters out greetings and one-word replies in groups.
const minQuestionLen = 10

// QuestionDetector decides whether a free-form group message is a question
// worth answering.
type QuestionDetector struct {
	keywords []string
}

func NewQuestionDetector() *QuestionDetector {
	return &QuestionDetector{
		keywords: []string{
			"?", "？",
			"क्या", "कैसे", "क्यों", "कौन", "कब", "कितना", "कितने", "किसे", "बताओ", "समझाओ",
			"what", "how", "why", "who", "when", "which", "where", "explain", "define", "calculate", "find",
			"kya", "kaise", "kyu", "kyon", "kaun",
		},
	}
}

func (d *QuestionDetector) IsQuestion(text string) bool {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minQuestionLen || strings.HasPrefix(text, "/") {
		return false
	}

	lower := strings.ToLower(text)
	for _, keyword := range d.keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
