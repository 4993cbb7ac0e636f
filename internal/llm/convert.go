package llm

import (
	"encoding/json"
	"fmt"
)

// ToChatMessages flattens stored conversation messages into provider messages.
// Tool invocations without a result are dropped; providers reject a tool call
// that is never answered.
func ToChatMessages(messages []Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser, RoleSystem:
			out = append(out, ChatMessage{Role: msg.Role, Content: msg.Content})
		case RoleAssistant:
			assistant := ChatMessage{Role: RoleAssistant, Content: msg.Content}
			var results []ChatMessage
			for _, inv := range msg.ToolInvocations {
				if inv.State != StateResult || inv.ToolCallID == "" {
					continue
				}
				args, err := json.Marshal(inv.Args)
				if err != nil || inv.Args == nil {
					args = []byte("{}")
				}
				assistant.ToolCalls = append(assistant.ToolCalls, ToolCall{
					ID:   inv.ToolCallID,
					Type: "function",
					Function: ToolCallFunction{
						Name:      inv.ToolName,
						Arguments: string(args),
					},
				})
				results = append(results, ChatMessage{
					Role:       RoleTool,
					ToolCallID: inv.ToolCallID,
					Content:    resultText(inv.Result),
				})
			}
			if assistant.Content == "" && len(assistant.ToolCalls) == 0 {
				continue
			}
			out = append(out, assistant)
			out = append(out, results...)
		}
	}
	return out
}

func resultText(result any) string {
	switch typed := result.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(data)
	}
}
