package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeEval    = "EVAL"
	TypePrompt  = "PROMPT"
	TypeReply   = "REPLY"
	TypeStatus  = "STATUS"
	TypeResult  = "RESULT"
	TypeError   = "ERROR"
)

// Participant roles. Role keys match case-insensitively; these are the
// canonical spellings.
const (
	RoleGreen   = "green"
	RoleBuilder = "rita"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
