package indexdb

import (
	"path/filepath"
	"testing"

	"blockinstruct.ai/internal/eval"
)

func TestIndex_RecordAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "index.db")
	idx, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	yes, no := true, false
	res := &eval.RunResult{
		RunID:                      "run-1",
		Accuracy:                   50,
		AvgQuestionsPerInstruction: 0.5,
		Rounds: []eval.RoundRecord{
			{Round: 1, Speaker: "Pia", TrialID: "1", Instruction: "Place.", Response: "[BUILD];Red,0,50,0", Feedback: "Feedback: Correct structure built. Red,0,50,0", Correct: &yes},
			{Round: 2, Speaker: "Pia", TrialID: "2a", Instruction: "Add.", Response: "[BUILD];Blue,0,50,0", Feedback: "Feedback: Incorrect structure.", Correct: &no, Questions: 1},
		},
	}
	idx.RecordResult(res)
	// Close drains the async writer before the queries below.
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	runs, err := idx.Runs()
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-1" || runs[0].Accuracy != 50 || runs[0].Rounds != 2 {
		t.Fatalf("runs=%+v", runs)
	}

	rounds, err := idx.RoundsForRun("run-1")
	if err != nil {
		t.Fatalf("rounds: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("rounds=%d want 2", len(rounds))
	}
	if rounds[0].Correct == nil || !*rounds[0].Correct {
		t.Fatalf("round 1 correct=%v", rounds[0].Correct)
	}
	if rounds[1].Questions != 1 || rounds[1].Correct == nil || *rounds[1].Correct {
		t.Fatalf("round 2: %+v", rounds[1])
	}
}

func TestIndex_CloseIdempotent(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	// Writes after close are dropped silently.
	idx.RecordResult(&eval.RunResult{RunID: "late"})
}
