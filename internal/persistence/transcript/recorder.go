// Package transcript records the green/builder conversation as an
// append-only compressed JSONL file, one file per run. Recording is
// best-effort: failures are logged and never fail the run.
package transcript

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Entry is one recorded message.
type Entry struct {
	TS   string `json:"ts"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// Recorder appends entries to <dir>/<runID>/conversation.jsonl.zst.
type Recorder struct {
	path string
	log  *log.Logger

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewRecorder(baseDir, runID string, logger *log.Logger) *Recorder {
	return &Recorder{
		path: filepath.Join(baseDir, runID, "conversation.jsonl.zst"),
		log:  logger,
	}
}

// Record implements eval.Recorder. Ordered append, no compaction.
func (r *Recorder) Record(from, to, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		if err := r.openLocked(); err != nil {
			r.printf("transcript open: %v", err)
			return
		}
	}

	b, err := json.Marshal(Entry{
		TS:   time.Now().UTC().Format(time.RFC3339Nano),
		From: from,
		To:   to,
		Text: text,
	})
	if err != nil {
		r.printf("transcript marshal: %v", err)
		return
	}
	if _, err := r.w.Write(b); err != nil {
		r.printf("transcript write: %v", err)
		return
	}
	if err := r.w.WriteByte('\n'); err != nil {
		r.printf("transcript write: %v", err)
		return
	}
	if err := r.w.Flush(); err != nil {
		r.printf("transcript flush: %v", err)
	}
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err1 error
	if r.w != nil {
		_ = r.w.Flush()
	}
	if r.enc != nil {
		err1 = r.enc.Close()
		r.enc = nil
	}
	if r.f != nil {
		_ = r.f.Close()
		r.f = nil
	}
	r.w = nil
	return err1
}

func (r *Recorder) Path() string { return r.path }

func (r *Recorder) openLocked() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	r.f = f
	r.enc = enc
	r.w = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (r *Recorder) printf(format string, args ...any) {
	if r.log != nil {
		r.log.Printf(format, args...)
	}
}
