package llm

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the linear conversation history. The history is
// append-only within a session and owned by a single writer.
type Turn struct {
	Role Role
	Text string
}
