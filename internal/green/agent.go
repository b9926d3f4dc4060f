// Package green implements the evaluating instructor agent: it sequences
// trials from the stimuli lists, drives the builder through every
// instruction, and scores the run.
package green

import (
	"context"
	"log"
	"math/rand"
	"time"

	"blockinstruct.ai/internal/config"
	"blockinstruct.ai/internal/eval"
	"blockinstruct.ai/internal/persistence/indexdb"
	"blockinstruct.ai/internal/persistence/transcript"
	"blockinstruct.ai/internal/protocol"
	"blockinstruct.ai/internal/qa"
	"blockinstruct.ai/internal/transport/ws"
	"blockinstruct.ai/internal/trial"
)

type Agent struct {
	Log   *log.Logger
	Cfg   config.Config
	Index *indexdb.Index // optional
}

// RunEval performs one full evaluation run against the builder named in the
// request. Request config may override the dataset paths and seed from the
// file config.
func (a *Agent) RunEval(ctx context.Context, req protocol.EvalRequest, status func(string)) (string, protocol.EvalResult, error) {
	endpoint, ok := req.Endpoint(protocol.RoleBuilder)
	if !ok || endpoint == "" {
		return "", protocol.EvalResult{}, protocol.E(protocol.ErrConfig, "missing required participant role: %s", protocol.RoleBuilder)
	}

	list1Path := a.Cfg.List1Path
	list2Path := a.Cfg.List2Path
	if v, ok := req.Config["list1_path"].(string); ok && v != "" {
		list1Path = v
	}
	if v, ok := req.Config["list2_path"].(string); ok && v != "" {
		list2Path = v
	}
	seed := a.Cfg.Seed
	switch v := req.Config["seed"].(type) {
	case float64: // JSON numbers decode as float64
		seed = int64(v)
	case int:
		seed = int64(v)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	list1, err := trial.LoadDataset(list1Path, 1)
	if err != nil {
		return "", protocol.EvalResult{}, err
	}
	list2, err := trial.LoadDataset(list2Path, 2)
	if err != nil {
		return "", protocol.EvalResult{}, err
	}

	sel, err := trial.Generate(list1, list2, rand.New(rand.NewSource(seed)))
	if err != nil {
		return "", protocol.EvalResult{}, err
	}
	a.Log.Printf("sequenced %d instructions (first=%s fully_spec_list=%d critical_list=%d seed=%d)",
		len(sel.First)+len(sel.Second), sel.FirstSpeaker, sel.FullySpecList, sel.CriticalList, seed)

	session, err := ws.Dial(ctx, endpoint, protocol.RoleGreen, a.Log)
	if err != nil {
		return "", protocol.EvalResult{}, err
	}

	runner := &eval.Runner{Controller: eval.Controller{
		Log:    a.Log,
		Status: status,
	}}
	if a.Cfg.QAURL != "" {
		runner.Answerer = qa.New(a.Cfg.QAURL)
	}

	var rec *transcript.Recorder
	if a.Cfg.TranscriptDir != "" {
		runID := time.Now().UTC().Format("20060102_150405")
		rec = transcript.NewRecorder(a.Cfg.TranscriptDir, runID, a.Log)
		defer func() {
			if err := rec.Close(); err != nil {
				a.Log.Printf("close transcript: %v", err)
			}
		}()
		runner.Recorder = rec
	}

	// Run closes the session on every exit path.
	result, err := runner.Run(ctx, sel, session)
	if err != nil {
		return "", protocol.EvalResult{}, err
	}

	a.Index.RecordResult(result)
	a.Log.Printf("run %s: accuracy=%.1f avg_questions=%.2f", result.RunID, result.Accuracy, result.AvgQuestionsPerInstruction)
	return result.RunID, result.Payload(), nil
}
