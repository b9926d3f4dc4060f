package eval

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"blockinstruct.ai/internal/protocol"
	"blockinstruct.ai/internal/trial"
)

// RoundRecord is the per-round audit trail entry. Diagnostics only; scoring
// consumers read RunResult's two metrics.
type RoundRecord struct {
	Round       int    `json:"round"`
	Speaker     string `json:"speaker"`
	TrialID     string `json:"trial_id"`
	Instruction string `json:"instruction"`
	Response    string `json:"response"`
	Feedback    string `json:"feedback"`
	Correct     *bool  `json:"correct"`
	Questions   int    `json:"questions"`
}

// RunResult is the single artifact emitted at the end of a run.
type RunResult struct {
	RunID                      string        `json:"run_id"`
	Accuracy                   float64       `json:"accuracy"`
	AvgQuestionsPerInstruction float64       `json:"avg_questions_per_instruction"`
	Rounds                     []RoundRecord `json:"rounds"`
}

// Payload returns the externally visible scoring contract.
func (r *RunResult) Payload() protocol.EvalResult {
	return protocol.EvalResult{
		Accuracy:                   r.Accuracy,
		AvgQuestionsPerInstruction: r.AvgQuestionsPerInstruction,
	}
}

// Runner drives the sequencer output instruction by instruction, strictly
// sequentially, and accumulates run-level metrics.
type Runner struct {
	Controller
}

// Run evaluates every instruction in the selection, first speaker's list
// then the second's. The messenger session is closed exactly once on every
// exit path.
func (r *Runner) Run(ctx context.Context, sel *trial.Selection, m Messenger) (result *RunResult, err error) {
	defer func() {
		if cerr := m.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close session: %w", cerr)
		}
	}()

	instructions := sel.All()
	if len(instructions) == 0 {
		return nil, protocol.E(protocol.ErrConfig, "sequencer produced no instructions")
	}

	taskDescription := "[TASK_DESCRIPTION] " + sel.GridContext

	var (
		numCorrect     int
		scoredCount    int
		questionsCount int
		rounds         []RoundRecord
	)
	for _, inst := range instructions {
		ir, rerr := r.RunInstruction(ctx, taskDescription, inst, m)
		if rerr != nil {
			return nil, rerr
		}
		if ir.Correct != nil {
			scoredCount++
			if *ir.Correct {
				numCorrect++
			}
		}
		questionsCount += ir.Questions

		lastResponse := ""
		if n := len(ir.Exchanges); n > 0 {
			lastResponse = ir.Exchanges[n-1].Response
		}
		rounds = append(rounds, RoundRecord{
			Round:       inst.Round,
			Speaker:     inst.Speaker,
			TrialID:     inst.TrialID,
			Instruction: inst.Instruction,
			Response:    lastResponse,
			Feedback:    ir.Feedback,
			Correct:     ir.Correct,
			Questions:   ir.Questions,
		})
	}

	return &RunResult{
		RunID:                      uuid.NewString(),
		Accuracy:                   scoreAccuracy(numCorrect, scoredCount),
		AvgQuestionsPerInstruction: float64(questionsCount) / float64(len(instructions)),
		Rounds:                     rounds,
	}, nil
}

// scoreAccuracy is 100*correct/scored, or 0 when nothing was scored.
func scoreAccuracy(numCorrect, scoredCount int) float64 {
	if scoredCount == 0 {
		return 0
	}
	return 100.0 * float64(numCorrect) / float64(scoredCount)
}
