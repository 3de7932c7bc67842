// Package chat defines the transport-neutral shapes exchanged with the chat
// platform: inbound actions and outbound messages.
package chat

type ActionKind string

const (
	KindCommand ActionKind = "command"
	KindText    ActionKind = "text"
	KindButton  ActionKind = "button"
)

// MessageRef addresses a message that was already sent, for edits.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Action is one inbound update.
type Action struct {
	SenderID int64
	Kind     ActionKind
	// Command is the command name without the leading slash; Payload then
	// holds the arguments. For text it is the message text, for buttons the
	// button data.
	Command    string
	Payload    string
	MessageRef MessageRef
	// ButtonID must be acknowledged for button presses.
	ButtonID string
}

type Button struct {
	Text string
	Data string
}

// Message is an outbound message. Inline buttons attach to the message;
// ReplyKeyboard replaces the requester's keyboard.
type Message struct {
	Text          string
	Inline        [][]Button
	ReplyKeyboard [][]string
}

// Text builds a plain message.
func Text(text string) Message {
	return Message{Text: text}
}

type Command struct {
	Name        string
	Description string
}
