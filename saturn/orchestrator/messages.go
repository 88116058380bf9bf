package orchestrator

import "strings"

// Approval is the classification of a free-text reply to a pending write.
type Approval string

const (
	ApprovalYes     Approval = "yes"
	ApprovalNo      Approval = "no"
	ApprovalUnknown Approval = "unknown"
)

var yesTokens = map[string]bool{
	"yes": true, "y": true, "approve": true, "approved": true,
	"confirm": true, "go ahead": true,
}

var noTokens = map[string]bool{
	"no": true, "n": true, "deny": true, "denied": true,
	"cancel": true, "stop": true,
}

// NormalizeRole maps legacy chat-framework role tokens onto the canonical
// set; unrecognized roles pass through lower-cased.
func NormalizeRole(role string) string {
	switch r := strings.ToLower(role); r {
	case "ai":
		return "assistant"
	case "human":
		return "user"
	default:
		return r
	}
}

// Normalized returns a copy of the message with its role canonicalized.
func (m Message) Normalized() Message {
	m.Role = NormalizeRole(m.Role)
	return m
}

// LastUserText returns the content of the most recent user message, or ""
// when the thread has none.
func LastUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		role := NormalizeRole(messages[i].Role)
		if role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// LatestToolPayload returns the content of the most recent tool-role message
// produced by toolName. The planner uses it to answer repeated read-style
// queries from history instead of re-issuing the tool.
func LatestToolPayload(messages []Message, toolName string) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if NormalizeRole(messages[i].Role) != "tool" {
			continue
		}
		if messages[i].Name == toolName {
			return messages[i].Content, true
		}
	}
	return "", false
}

// ClassifyYesNo buckets an approval reply using a fixed vocabulary. Anything
// outside the vocabulary is ApprovalUnknown, which preserves the pending
// write and re-prompts.
func ClassifyYesNo(text string) Approval {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch {
	case yesTokens[normalized]:
		return ApprovalYes
	case noTokens[normalized]:
		return ApprovalNo
	default:
		return ApprovalUnknown
	}
}
