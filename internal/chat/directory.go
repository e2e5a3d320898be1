package chat

import "strings"

// FilterConversations returns the conversations whose partner name contains
// query, case-insensitively. Nameless partners match as "Unknown". The input
// order is kept and the input slice is not modified.
func FilterConversations(list []Conversation, query string) []Conversation {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	out := make([]Conversation, 0, len(list))
	for _, c := range list {
		if strings.Contains(strings.ToLower(c.Partner.DisplayName()), q) {
			out = append(out, c)
		}
	}
	return out
}

// Preview renders the last-message line for a directory row.
func Preview(c Conversation, currentUserID string) string {
	lm := c.LastMessage
	if lm == nil || lm.Text == "" {
		return "No messages yet"
	}
	if currentUserID != "" && lm.SenderID == currentUserID {
		return "You: " + lm.Text
	}
	return lm.Text
}

// UnreadTotal sums unread counts across conversations.
func UnreadTotal(list []Conversation) int {
	total := 0
	for _, c := range list {
		total += c.UnreadCount
	}
	return total
}
