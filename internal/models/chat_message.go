package models

type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// StructuredDecision is the fixed-shape summary extracted from a model reply.
type StructuredDecision struct {
	Decision         string   `json:"decision"`
	Reasoning        string   `json:"reasoning"`
	EthicalFramework string   `json:"ethicalFramework"`
	Tradeoffs        []string `json:"tradeoffs"`
}

// Complete reports whether every text field carries a value.
func (d *StructuredDecision) Complete() bool {
	return d != nil && d.Decision != "" && d.Reasoning != "" && d.EthicalFramework != ""
}

// ChatMessage is one entry in a panel transcript.
type ChatMessage struct {
	Role               ChatRole            `json:"role"`
	Content            string              `json:"content"`
	StructuredDecision *StructuredDecision `json:"structuredDecision,omitempty"`
	IsStreaming        bool                `json:"isStreaming,omitempty"`
	IsError            bool                `json:"isError,omitempty"`
	Tokens             int                 `json:"tokens,omitempty"`
}

// CountRole returns how many messages in history have the given role.
func CountRole(history []ChatMessage, role ChatRole) int {
	n := 0
	for _, msg := range history {
		if msg.Role == role {
			n++
		}
	}
	return n
}

// LastModelMessage returns the most recent model reply, or nil.
func LastModelMessage(history []ChatMessage) *ChatMessage {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleModel {
			return &history[i]
		}
	}
	return nil
}
