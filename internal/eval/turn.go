package eval

import (
	"context"
	"fmt"
	"log"

	"blockinstruct.ai/internal/protocol"
	"blockinstruct.ai/internal/trial"
)

// Messenger is one conversation session with the remote builder agent.
// Transport failures surface as errors and are never retried here.
type Messenger interface {
	// Send delivers a prompt and suspends until the builder replies.
	Send(ctx context.Context, prompt string) (string, error)
	// Notify delivers a one-shot message that expects no reply.
	Notify(ctx context.Context, text string) error
	Close() error
}

// Recorder receives every prompt/response pair, best-effort. Failures are
// not part of the scoring contract.
type Recorder interface {
	Record(from, to, text string)
}

// StatusSink receives working-state lines, best-effort.
type StatusSink func(text string)

// The two conversation parties, named in transcripts and status lines.
const (
	GreenRole   = protocol.RoleGreen
	BuilderRole = protocol.RoleBuilder
)

// TurnOutcome is produced once per builder reply.
type TurnOutcome struct {
	Message   string
	Correct   *bool // nil while unscored (question turns)
	Questions int   // 0 or 1
	Built     bool
}

// Exchange is one prompt/response pair, kept for diagnostics.
type Exchange struct {
	Prompt   string
	Response string
}

// InstructionResult is the terminal state of one instruction's loop.
type InstructionResult struct {
	Instance  trial.Instance
	Exchanges []Exchange
	Correct   *bool
	Questions int
	Feedback  string
}

// Controller drives one instruction's interaction loop.
type Controller struct {
	Log      *log.Logger
	Recorder Recorder   // optional
	Status   StatusSink // optional
	Answerer Answerer   // optional; FallbackAnswer when absent
}

// RunInstruction sends the instruction and loops until the builder submits a
// structure. Question turns are answered and fed back as the next prompt;
// the loop has no question cap, so an always-asking builder never terminates
// an instruction (the transport's per-call deadline is the only bound).
// After the loop a one-shot feedback message is sent; it is not scored.
func (c *Controller) RunInstruction(ctx context.Context, taskDescription string, inst trial.Instance, m Messenger) (*InstructionResult, error) {
	res := &InstructionResult{Instance: inst}
	prompt := fmt.Sprintf("%s\nStart structure: %s\n%s", taskDescription, inst.StartStructure, inst.Instruction)

	for {
		c.record(GreenRole, BuilderRole, prompt)
		reply, err := m.Send(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", inst.Round, err)
		}
		c.record(BuilderRole, GreenRole, reply)
		c.status(fmt.Sprintf("%s: %s", BuilderRole, reply))
		res.Exchanges = append(res.Exchanges, Exchange{Prompt: prompt, Response: reply})

		outcome, err := c.evalReply(ctx, reply, inst.TargetStructure)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", inst.Round, err)
		}
		res.Questions += outcome.Questions
		if outcome.Built {
			res.Correct = outcome.Correct
			res.Feedback = "Feedback: " + outcome.Message
			break
		}
		prompt = outcome.Message
	}

	c.record(GreenRole, BuilderRole, res.Feedback)
	c.status(res.Feedback)
	if err := m.Notify(ctx, res.Feedback); err != nil {
		return nil, fmt.Errorf("round %d: send feedback: %w", inst.Round, err)
	}
	return res, nil
}

// evalReply scores a single builder reply. A wrong structure is a normal
// outcome, not an error; only an unknown action tag or a failing external
// answerer is.
func (c *Controller) evalReply(ctx context.Context, reply, targetStructure string) (TurnOutcome, error) {
	act, err := protocol.ParseReply(reply)
	if err != nil {
		return TurnOutcome{}, err
	}

	switch a := act.(type) {
	case protocol.BuildAction:
		got := NormalizeBlocks(a.Blocks)
		want := NormalizeStructure(targetStructure)
		if got.Equal(want) {
			yes := true
			return TurnOutcome{
				Message: fmt.Sprintf("Correct structure built. %s", targetStructure),
				Correct: &yes,
				Built:   true,
			}, nil
		}
		no := false
		return TurnOutcome{
			Message: fmt.Sprintf("Incorrect structure. Expected: %s, but got: %s", want, got),
			Correct: &no,
			Built:   true,
		}, nil

	case protocol.AskAction:
		var answer string
		if c.Answerer != nil {
			answer, err = c.Answerer.Answer(ctx, a.Question, targetStructure)
			if err != nil {
				return TurnOutcome{}, fmt.Errorf("answer question: %w", err)
			}
		} else {
			answer = FallbackAnswer(a.Question, targetStructure)
		}
		return TurnOutcome{
			Message:   "Answer: " + answer,
			Questions: 1,
		}, nil

	default:
		return TurnOutcome{}, protocol.E(protocol.ErrInternal, "unhandled action %T", act)
	}
}

func (c *Controller) record(from, to, text string) {
	if c.Recorder != nil {
		c.Recorder.Record(from, to, text)
	}
}

func (c *Controller) status(text string) {
	if c.Status != nil {
		c.Status(text)
	}
}
