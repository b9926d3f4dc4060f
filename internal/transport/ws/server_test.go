package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"

	"blockinstruct.ai/internal/protocol"
)

func TestServer_EvalRoundTrip(t *testing.T) {
	run := func(ctx context.Context, req protocol.EvalRequest, status func(string)) (string, protocol.EvalResult, error) {
		if ep, _ := req.Endpoint("rita"); ep != "ws://builder.example/v1/agent" {
			t.Errorf("unexpected endpoint %q", ep)
		}
		status("round 1 done")
		return "run-1", protocol.EvalResult{Accuracy: 100, AvgQuestionsPerInstruction: 0.5}, nil
	}
	srv := httptest.NewServer(NewServer(run, testLogger()).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Role key casing must not matter.
	err = conn.WriteJSON(protocol.EvalMsg{
		Type:            protocol.TypeEval,
		ProtocolVersion: protocol.Version,
		Request: protocol.EvalRequest{
			Participants: map[string]string{"Rita": "ws://builder.example/v1/agent"},
		},
	})
	if err != nil {
		t.Fatalf("send eval: %v", err)
	}

	var sawStatus bool
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, _ := protocol.DecodeBase(raw)
		switch base.Type {
		case protocol.TypeStatus:
			sawStatus = true
		case protocol.TypeResult:
			var rm protocol.ResultMsg
			if err := json.Unmarshal(raw, &rm); err != nil {
				t.Fatalf("unmarshal result: %v", err)
			}
			if rm.RunID != "run-1" || rm.Result.Accuracy != 100 {
				t.Fatalf("result=%+v", rm)
			}
			if !sawStatus {
				t.Fatalf("expected a STATUS before the RESULT")
			}
			return
		default:
			t.Fatalf("unexpected message type %q", base.Type)
		}
	}
}

func TestServer_RejectsMissingBuilderRole(t *testing.T) {
	run := func(ctx context.Context, req protocol.EvalRequest, status func(string)) (string, protocol.EvalResult, error) {
		t.Fatal("run must not be called")
		return "", protocol.EvalResult{}, nil
	}
	srv := httptest.NewServer(NewServer(run, testLogger()).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	err = conn.WriteJSON(protocol.EvalMsg{
		Type:            protocol.TypeEval,
		ProtocolVersion: protocol.Version,
		Request:         protocol.EvalRequest{Participants: map[string]string{"observer": "ws://x"}},
	})
	if err != nil {
		t.Fatalf("send eval: %v", err)
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var em protocol.ErrorMsg
	if err := json.Unmarshal(raw, &em); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if em.Type != protocol.TypeError || em.Code != protocol.ErrConfig {
		t.Fatalf("expected %s error, got %+v", protocol.ErrConfig, em)
	}
}

func TestServer_RunErrorReported(t *testing.T) {
	run := func(ctx context.Context, req protocol.EvalRequest, status func(string)) (string, protocol.EvalResult, error) {
		return "", protocol.EvalResult{}, protocol.E(protocol.ErrProtoBadAction, "invalid action in response: %q", "[FOO];x")
	}
	srv := httptest.NewServer(NewServer(run, testLogger()).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	err = conn.WriteJSON(protocol.EvalMsg{
		Type:            protocol.TypeEval,
		ProtocolVersion: protocol.Version,
		Request:         protocol.EvalRequest{Participants: map[string]string{"rita": "ws://x"}},
	})
	if err != nil {
		t.Fatalf("send eval: %v", err)
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var em protocol.ErrorMsg
	if err := json.Unmarshal(raw, &em); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if em.Code != protocol.ErrProtoBadAction {
		t.Fatalf("expected %s, got %+v", protocol.ErrProtoBadAction, em)
	}
}
