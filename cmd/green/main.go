package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blockinstruct.ai/internal/config"
	"blockinstruct.ai/internal/green"
	"blockinstruct.ai/internal/persistence/indexdb"
	"blockinstruct.ai/internal/protocol"
	"blockinstruct.ai/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", "", "http listen address (overrides config)")
		configPath  = flag.String("config", "", "path to green.yaml")
		seed        = flag.Int64("seed", 0, "trial sequencing seed (overrides config; 0 = from clock)")
		transcripts = flag.String("transcripts", "", "transcript directory (overrides config)")
		dbPath      = flag.String("db", "", "results index path (overrides config)")
		disableDB   = flag.Bool("disable_db", false, "disable the results index")
		once        = flag.Bool("once", false, "run one evaluation from config participants, print the result, exit")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[green] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *transcripts != "" {
		cfg.TranscriptDir = *transcripts
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if err := cfg.Validate(*once); err != nil {
		logger.Fatalf("config: %v", err)
	}

	var idx *indexdb.Index
	if !*disableDB && cfg.DBPath != "" {
		idx, err = indexdb.Open(cfg.DBPath)
		if err != nil {
			logger.Fatalf("open results index: %v", err)
		}
		defer idx.Close()
	}

	agent := &green.Agent{Log: logger, Cfg: cfg, Index: idx}

	ctx, cancel := signalContext()
	defer cancel()

	if *once {
		runOnce(ctx, agent, logger)
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/.well-known/agent-card.json", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(evaluatorCard("StructureEvaluator", "http://"+r.Host+"/"))
	})
	mux.HandleFunc("/v1/eval", ws.NewServer(agent.RunEval, logger).Handler())

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func runOnce(ctx context.Context, agent *green.Agent, logger *log.Logger) {
	req := protocol.EvalRequest{Participants: agent.Cfg.Participants}
	runID, result, err := agent.RunEval(ctx, req, func(text string) {
		logger.Printf("status: %s", text)
	})
	if err != nil {
		logger.Fatalf("eval: %v", err)
	}
	out := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		RunID:           runID,
		Result:          result,
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	os.Stdout.Write(append(b, '\n'))
}

type agentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type agentCard struct {
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	URL                string       `json:"url"`
	Version            string       `json:"version"`
	DefaultInputModes  []string     `json:"default_input_modes"`
	DefaultOutputModes []string     `json:"default_output_modes"`
	Skills             []agentSkill `json:"skills"`
}

func evaluatorCard(name, url string) agentCard {
	return agentCard{
		Name:               name,
		Description:        "Gives instructions and evaluates how the builder follows them",
		URL:                url,
		Version:            "1.0.0",
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []agentSkill{{
			ID:          "evaluation_instruction_following",
			Name:        "Evaluate built structure",
			Description: "Gives instructions and evaluates how the builder follows them",
			Tags:        []string{"instructor", "building"},
		}},
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
