package qa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Answer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Question != "what color?" || req.TargetStructure != "Red,0,50,0" {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(rw).Encode(answerResponse{Answer: "The block is red."})
	}))
	defer srv.Close()

	got, err := New(srv.URL).Answer(context.Background(), "what color?", "Red,0,50,0")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if got != "The block is red." {
		t.Fatalf("answer=%q", got)
	}
}

func TestClient_AnswerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Answer(context.Background(), "q", "t")
	if err == nil {
		t.Fatalf("expected error on 503")
	}
}
