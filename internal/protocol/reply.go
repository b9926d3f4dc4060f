package protocol

import "strings"

// Builder action tags, always the first ";"-separated field of a reply line.
const (
	TagBuild = "[BUILD]"
	TagAsk   = "[ASK]"
)

// Action is the parsed form of a builder reply line. The set is closed:
// ParseReply is the only producer and rejects unknown tags.
type Action interface {
	isAction()
}

// BuildAction submits a structure: each block is a "Color,x,y,z" descriptor.
type BuildAction struct {
	Blocks []string
}

// AskAction asks a free-text clarifying question about the target.
type AskAction struct {
	Question string
}

func (BuildAction) isAction() {}
func (AskAction) isAction()   {}

// ParseReply parses a single builder reply line of the form
// "TAG;field;field;...". Block descriptors keep their raw text; question
// payloads are rejoined on ";" so questions may themselves contain
// semicolons.
func ParseReply(raw string) (Action, error) {
	fields := strings.Split(raw, ";")
	tag := strings.TrimSpace(fields[0])
	switch tag {
	case TagBuild:
		blocks := make([]string, 0, len(fields)-1)
		for _, f := range fields[1:] {
			if strings.TrimSpace(f) == "" {
				continue
			}
			blocks = append(blocks, f)
		}
		return BuildAction{Blocks: blocks}, nil
	case TagAsk:
		q := strings.TrimSpace(strings.Join(fields[1:], ";"))
		return AskAction{Question: q}, nil
	default:
		return nil, E(ErrProtoBadAction, "invalid action in response: %q", raw)
	}
}
