package context

import "ctxfeed/internal/provider"

// historyLabel replaces the label of both history blocks in messages.
const historyLabel = "Conversation History"

// Assemble turns packed items into the message sequence: the system prompt
// first, every other item as a labeled system message in packing order, and
// the user message last. History blocks are never split into turns.
func Assemble(included []Item) []provider.Message {
	var (
		head  []provider.Message
		body  []provider.Message
		users []provider.Message
	)
	for _, it := range included {
		switch it.Category {
		case CategorySystemPrompt:
			head = append(head, provider.Message{Role: provider.RoleSystem, Content: it.Content})
		case CategoryUserMessage:
			users = append(users, provider.Message{Role: provider.RoleUser, Content: it.Content})
		default:
			label := it.Label
			if it.Category.IsHistory() {
				label = historyLabel
			}
			body = append(body, provider.Message{
				Role:    provider.RoleSystem,
				Content: "[" + label + "]\n" + it.Content,
			})
		}
	}

	msgs := make([]provider.Message, 0, len(head)+len(body)+len(users))
	msgs = append(msgs, head...)
	msgs = append(msgs, body...)
	return append(msgs, users...)
}
