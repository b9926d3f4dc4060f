package protocol

import "strings"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
	Role            string `json:"role,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentID         string `json:"agent_id"`
	AgentName       string `json:"agent_name,omitempty"`
}

// EVAL (caller -> green): start an evaluation run.
type EvalMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Request         EvalRequest `json:"request"`
}

// EvalRequest maps participant roles to opaque endpoints. Role keys are
// matched case-insensitively; the builder role is "rita".
type EvalRequest struct {
	Participants map[string]string `json:"participants"`
	Config       map[string]any    `json:"config,omitempty"`
}

// Endpoint returns the endpoint for a role, case-insensitive on the key.
func (r EvalRequest) Endpoint(role string) (string, bool) {
	for k, v := range r.Participants {
		if strings.EqualFold(k, role) {
			return v, true
		}
	}
	return "", false
}

// PROMPT (green -> builder): one instruction, answer, or feedback message.
type PromptMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	Text            string `json:"text"`
	// Feedback prompts carry no reply obligation.
	Feedback bool `json:"feedback,omitempty"`
}

// REPLY (builder -> green): single reply line, "[BUILD];..." or "[ASK];...".
type ReplyMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	Text            string `json:"text"`
}

// STATUS (green -> caller): working-state updates during a run.
type StatusMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

// RESULT (green -> caller): the final scoring payload.
type ResultMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	RunID           string     `json:"run_id"`
	Result          EvalResult `json:"result"`
}

// EvalResult is the externally visible scoring contract.
type EvalResult struct {
	Accuracy                   float64 `json:"accuracy"`
	AvgQuestionsPerInstruction float64 `json:"avg_questions_per_instruction"`
}

// ERROR (either direction)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
