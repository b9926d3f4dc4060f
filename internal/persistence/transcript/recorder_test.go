package transcript

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestRecorder_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, "run-1", nil)

	r.Record("green", "rita", "[TASK_DESCRIPTION] grid\nPlace a red block.")
	r.Record("rita", "green", "[BUILD];Red,0,50,0;")
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(r.Path())
	if err != nil {
		t.Fatalf("open transcript: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var entries []Entry
	sc := bufio.NewScanner(dec.IOReadCloser())
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("entries=%d want 2", len(entries))
	}
	if entries[0].From != "green" || entries[0].To != "rita" {
		t.Fatalf("entry 0: %+v", entries[0])
	}
	if entries[1].Text != "[BUILD];Red,0,50,0;" {
		t.Fatalf("entry 1: %+v", entries[1])
	}
	if entries[0].TS == "" {
		t.Fatalf("missing timestamp")
	}
}

func TestRecorder_CloseWithoutWrites(t *testing.T) {
	r := NewRecorder(t.TempDir(), "run-2", nil)
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(r.Path()); !os.IsNotExist(err) {
		t.Fatalf("no file should exist before the first record")
	}
}
