package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"blockinstruct.ai/internal/protocol"
)

// A scripted builder endpoint for exercising the green agent end to end.
// It answers every instruction the same way, picked by -script:
//
//	dummy          always reply "[BUILD];Red,0,50,0"
//	ask-then-build ask one question per instruction, then build
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const dummyReply = protocol.TagBuild + ";Red,0,50,0"

func main() {
	var (
		addr   = flag.String("addr", ":9020", "http listen address")
		script = flag.String("script", "dummy", "reply script: dummy | ask-then-build")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[builder] ", log.LstdFlags|log.Lmicroseconds)
	if *script != "dummy" && *script != "ask-then-build" {
		logger.Fatalf("unknown -script %q", *script)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			logger.Printf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		serve(conn, logger, *script)
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Printf("listening on %s script=%s", *addr, *script)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func serve(conn *websocket.Conn, logger *log.Logger, script string) {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(raw, &hello); err != nil || hello.Type != protocol.TypeHello {
		logger.Printf("expected HELLO, closing")
		return
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		AgentID:         uuid.NewString(),
		AgentName:       hello.AgentName,
	}
	if err := conn.WriteJSON(welcome); err != nil {
		return
	}

	// One question per instruction; feedback marks the instruction done.
	asked := false
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(raw)
		if err != nil || base.Type != protocol.TypePrompt {
			continue
		}
		var p protocol.PromptMsg
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		if p.Feedback {
			logger.Printf("feedback: %s", p.Text)
			asked = false
			continue
		}

		text := dummyReply
		if script == "ask-then-build" && !asked {
			text = protocol.TagAsk + ";What colors are in the target?"
			asked = true
		}
		reply := protocol.ReplyMsg{
			Type:            protocol.TypeReply,
			ProtocolVersion: protocol.Version,
			Seq:             p.Seq,
			Text:            text,
		}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}
