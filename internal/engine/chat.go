package engine

import (
	"context"
	"strings"

	"govline/internal/domain"
)

const chatMaxTokens = 512

// requestCreatedNotice is appended to the reply when a conversational
// exchange created a change request as a side effect.
const requestCreatedNotice = "\n\n[A change request was filed from this conversation and is pending review.]"

// fallbackReply is returned when the text-generation capability is
// unavailable; the conversational boundary never hard-fails.
const fallbackReply = "I could not reach the drafting service just now. Your message was received; please try again shortly."

// ChatResult is the outcome of one conversational exchange.
type ChatResult struct {
	Reply   string                `json:"reply"`
	Request *domain.ChangeRequest `json:"request,omitempty"`
}

// SubmitConversation handles free-form conversational input. It always
// returns a best-effort reply; classification or intake failures are logged
// and degrade to "no request created", never to an error for the caller.
func (e *Engine) SubmitConversation(ctx context.Context, actorID, text string, history []string) (ChatResult, error) {
	prompt := buildPrompt(history, text)

	reply := fallbackReply
	if e.TextGen != nil {
		generated, err := e.TextGen.Generate(ctx, prompt, chatMaxTokens)
		if err != nil {
			// A failed draft degrades the whole exchange: reply with the
			// fallback and file nothing automatically.
			e.logger().Printf("textgen failed, degrading to fallback reply: %v", err)
			return ChatResult{Reply: reply}, nil
		}
		reply = generated
	}

	triggered, hits := classifyChangeIntent(text)
	if !triggered {
		return ChatResult{Reply: reply}, nil
	}

	description := ""
	if reply != fallbackReply {
		description = firstParagraph(reply)
	}
	cr, created, err := e.SubmitRequest(ctx, SubmitOptions{
		RequesterAgent: actorID,
		Type:           "best-practice-suggestion",
		Title:          titleFromText(text),
		Description:    description,
		Justification:  text,
		Priority:       "medium",
	})
	if err != nil {
		e.logger().Printf("conversational intake failed (matched %s): %v", strings.Join(hits, ","), err)
		return ChatResult{Reply: reply}, nil
	}
	if created {
		reply += requestCreatedNotice
	}
	return ChatResult{Reply: reply, Request: &cr}, nil
}

func buildPrompt(history []string, text string) string {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString(turn)
		b.WriteString("\n")
	}
	b.WriteString(text)
	return b.String()
}
