// Package notify carries outbound chat messages. Game code builds Messages;
// a Notifier delivers them to a group or a private chat.
package notify

import "context"

// Button is one inline keyboard button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Message is an HTML-formatted chat message with an optional inline keyboard.
type Message struct {
	Text     string
	Keyboard [][]Button
}

// Notifier delivers messages to chats.
type Notifier interface {
	// Send posts msg to chatID and returns the new message id.
	Send(ctx context.Context, chatID int64, msg Message) (int, error)
	// Delete removes a previously sent message.
	Delete(ctx context.Context, chatID int64, messageID int) error
	// Pin pins a message in a group.
	Pin(ctx context.Context, chatID int64, messageID int) error
}
