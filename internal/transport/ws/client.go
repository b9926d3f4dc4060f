package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blockinstruct.ai/internal/protocol"
)

const defaultCallTimeout = 60 * time.Second

// Session is one conversation with a remote builder agent over a websocket.
// It implements eval.Messenger. Calls are strictly sequential; the session
// is owned by a single run.
type Session struct {
	conn *websocket.Conn
	log  *log.Logger

	callTimeout time.Duration
	seq         uint64

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to a builder endpoint and performs the HELLO/WELCOME
// handshake. Every failure is a transport error.
func Dial(ctx context.Context, endpoint, agentName string, logger *log.Logger) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, protocol.E(protocol.ErrTransport, "dial %s: %v", endpoint, err)
	}

	s := &Session{conn: conn, log: logger, callTimeout: defaultCallTimeout}

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       agentName,
	}
	if err := s.writeJSON(hello); err != nil {
		_ = conn.Close()
		return nil, err
	}

	msg, err := s.readMessage(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeWelcome {
		_ = conn.Close()
		return nil, protocol.E(protocol.ErrTransport, "handshake with %s: expected WELCOME, got %q", endpoint, base.Type)
	}
	return s, nil
}

// Send delivers one prompt and blocks until the builder's reply arrives.
// The per-call read deadline is the only timeout in the system; a silent
// builder fails the run here rather than hanging it forever.
func (s *Session) Send(ctx context.Context, prompt string) (string, error) {
	s.seq++
	msg := protocol.PromptMsg{
		Type:            protocol.TypePrompt,
		ProtocolVersion: protocol.Version,
		Seq:             s.seq,
		Text:            prompt,
	}
	if err := s.writeJSON(msg); err != nil {
		return "", err
	}

	for {
		raw, err := s.readMessage(ctx)
		if err != nil {
			return "", err
		}
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeReply:
			var reply protocol.ReplyMsg
			if err := json.Unmarshal(raw, &reply); err != nil {
				continue
			}
			if reply.Seq != 0 && reply.Seq != s.seq {
				// Stale reply from an earlier prompt; keep waiting.
				continue
			}
			return reply.Text, nil
		case protocol.TypeError:
			var em protocol.ErrorMsg
			if err := json.Unmarshal(raw, &em); err != nil {
				continue
			}
			return "", protocol.E(protocol.ErrTransport, "builder error %s: %s", em.Code, em.Message)
		}
	}
}

// Notify delivers a one-shot message that expects no reply.
func (s *Session) Notify(ctx context.Context, text string) error {
	s.seq++
	msg := protocol.PromptMsg{
		Type:            protocol.TypePrompt,
		ProtocolVersion: protocol.Version,
		Seq:             s.seq,
		Text:            text,
		Feedback:        true,
	}
	return s.writeJSON(msg)
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *Session) writeJSON(v any) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := s.conn.WriteJSON(v); err != nil {
		return protocol.E(protocol.ErrTransport, "write: %v", err)
	}
	return nil
}

func (s *Session) readMessage(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(s.callTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetReadDeadline(deadline)
	_, raw, err := s.conn.ReadMessage()
	if err != nil {
		return nil, protocol.E(protocol.ErrTransport, "read: %v", err)
	}
	return raw, nil
}
