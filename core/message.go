package core

import "fmt"

// Role identifies the speaker of a conversational Message.
type Role string

const (
	// RoleSystem marks instructions that frame a conversation.
	RoleSystem Role = "system"
	// RoleUser marks a request issued to an agent.
	RoleUser Role = "user"
	// RoleAI marks a response produced by an agent.
	RoleAI Role = "ai"
)

// Message is a single conversational turn.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// SystemMessage creates a system-role message.
func SystemMessage(text string) Message { return Message{Role: RoleSystem, Text: text} }

// UserMessage creates a user-role message.
func UserMessage(text string) Message { return Message{Role: RoleUser, Text: text} }

// AIMessage creates an ai-role message.
func AIMessage(text string) Message { return Message{Role: RoleAI, Text: text} }

// String renders the message as "<Role>: <Text>".
func (m Message) String() string { return fmt.Sprintf("%s: %s", m.Role, m.Text) }
