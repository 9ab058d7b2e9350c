package server

import "govline/internal/domain"

// Request payloads

type CreateRequestBody struct {
	RequesterAgent string `json:"requester_agent"`
	Type           string `json:"type" enum:"best-practice-suggestion,bug-fix,policy-update"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Justification  string `json:"justification,omitempty"`
	Priority       string `json:"priority,omitempty" enum:"low,medium,high,critical"`
}

type ChatBody struct {
	Text    string   `json:"text"`
	History []string `json:"history,omitempty"`
}

type CheckArtifactBody struct {
	Text     string `json:"text"`
	FilePath string `json:"file_path,omitempty"`
}

type RecordLedgerBody struct {
	BotName    string             `json:"bot_name"`
	Area       string             `json:"area,omitempty"`
	Task       string             `json:"task"`
	Result     string             `json:"result,omitempty"`
	Reflection domain.Reflection  `json:"reflection,omitempty"`
	Errors     []domain.WorkError `json:"errors,omitempty"`
}

type ValidateLedgerBody struct {
	Passed bool     `json:"passed"`
	Issues []string `json:"issues,omitempty"`
}

// Responses

type RequestResponse struct {
	domain.ChangeRequest
	Created bool `json:"created"`
}

type LedgerIDResponse struct {
	ID string `json:"id"`
}
