package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"blockinstruct.ai/internal/protocol"
)

// RunFunc executes one evaluation run and reports status lines as it goes.
type RunFunc func(ctx context.Context, req protocol.EvalRequest, status func(text string)) (runID string, result protocol.EvalResult, err error)

// Server is the green agent's eval endpoint: it accepts one EVAL request per
// connection, streams STATUS lines while the run progresses, and finishes
// with RESULT or ERROR.
type Server struct {
	run RunFunc
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(run RunFunc, logger *log.Logger) *Server {
	return &Server{
		run: run,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		req, ok := s.readEval(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine; everything outbound goes through out.
		out := make(chan []byte, 64)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		send := func(v any) {
			b, err := json.Marshal(v)
			if err != nil {
				return
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
		}

		status := func(text string) {
			send(protocol.StatusMsg{
				Type:            protocol.TypeStatus,
				ProtocolVersion: protocol.Version,
				Text:            text,
			})
		}

		runID, result, err := s.run(ctx, req, status)
		if err != nil {
			s.log.Printf("eval run failed: %v", err)
			send(protocol.ErrorMsg{
				Type:            protocol.TypeError,
				ProtocolVersion: protocol.Version,
				Code:            protocol.CodeOf(err),
				Message:         err.Error(),
			})
		} else {
			send(protocol.ResultMsg{
				Type:            protocol.TypeResult,
				ProtocolVersion: protocol.Version,
				RunID:           runID,
				Result:          result,
			})
		}

		close(out)
		<-done
	}
}

// readEval reads and validates the opening EVAL message. The builder role
// must be present; roles match case-insensitively.
func (s *Server) readEval(conn *websocket.Conn) (protocol.EvalRequest, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return protocol.EvalRequest{}, false
	}

	reject := func(code, msg string) {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		_ = conn.WriteJSON(protocol.ErrorMsg{
			Type:            protocol.TypeError,
			ProtocolVersion: protocol.Version,
			Code:            code,
			Message:         msg,
		})
	}

	base, err := protocol.DecodeBase(raw)
	if err != nil || base.Type != protocol.TypeEval {
		reject(protocol.ErrProtoBadRequest, "expected EVAL message")
		return protocol.EvalRequest{}, false
	}
	var em protocol.EvalMsg
	if err := json.Unmarshal(raw, &em); err != nil {
		reject(protocol.ErrProtoBadRequest, "malformed EVAL message")
		return protocol.EvalRequest{}, false
	}
	if _, ok := em.Request.Endpoint(protocol.RoleBuilder); !ok {
		reject(protocol.ErrConfig, "missing required participant role: rita")
		return protocol.EvalRequest{}, false
	}
	return em.Request, true
}
