package engine

import "strings"

// changeVocabulary is the coarse intent vocabulary for conversational text.
// A single hit is too noisy to act on ("planning a trip" is not a change
// request), so classification requires at least minVocabularyHits distinct
// matches before a request is auto-created.
var changeVocabulary = []string{
	"optimize",
	"optimization",
	"improve",
	"improvement",
	"best practice",
	"suggestion",
	"suggest",
	"refactor",
	"change request",
	"reduce",
	"avoid duplicate",
	"plan",
}

const minVocabularyHits = 2

// classifyChangeIntent reports whether free-form text reads like a change
// proposal, returning the matched vocabulary.
func classifyChangeIntent(text string) (bool, []string) {
	lower := strings.ToLower(text)
	var hits []string
	for _, term := range changeVocabulary {
		if strings.Contains(lower, term) {
			hits = append(hits, term)
		}
	}
	return len(hits) >= minVocabularyHits, hits
}

// titleFromText derives a request title from conversational input: the
// first sentence, capped at 80 characters.
func titleFromText(text string) string {
	text = strings.TrimSpace(text)
	for _, sep := range []string{". ", "?\n", "!\n", "\n"} {
		if idx := strings.Index(text, sep); idx > 0 {
			text = text[:idx]
			break
		}
	}
	text = strings.TrimRight(text, ".?! ")
	if len(text) > 80 {
		cut := text[:80]
		if idx := strings.LastIndex(cut, " "); idx > 40 {
			cut = cut[:idx]
		}
		text = cut
	}
	if text == "" {
		return "Conversational suggestion"
	}
	return text
}

// firstParagraph returns the first paragraph-like segment of generated text.
func firstParagraph(text string) string {
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			return para
		}
	}
	return strings.TrimSpace(text)
}
