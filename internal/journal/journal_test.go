package journal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriter_RoundTrip(t *testing.T) {
	dir := Dir(t.TempDir())
	w := dir.Open("s-1")

	entries := []Entry{
		{SessionID: "s-1", Seq: 1, Type: "session_started", Payload: json.RawMessage(`{"seed":7}`), At: 100},
		{SessionID: "s-1", Seq: 2, Day: 1, Type: "day_advanced", At: 101},
		{SessionID: "s-1", Seq: 3, Day: 1, Type: "choice_resolved", Payload: json.RawMessage(`{"petition_id":4,"choice_index":0}`), At: 102},
	}
	for _, e := range entries {
		if err := w.Write(e); err != nil {
			t.Fatalf("Write seq=%d: %v", e.Seq, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadAll(dir.Path("s-1"))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	if got[2].Type != "choice_resolved" || string(got[2].Payload) != `{"petition_id":4,"choice_index":0}` {
		t.Errorf("third entry = %+v", got[2])
	}
	if got[1].Payload != nil {
		t.Errorf("empty payload = %s, want omitted", got[1].Payload)
	}
}

func TestWriter_NoFileUntilWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idle"+Ext)
	w := NewWriter(path)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Stat err = %v, want not exist", err)
	}
}

func TestReadFile_StopsOnCallbackError(t *testing.T) {
	dir := Dir(t.TempDir())
	w := dir.Open("s-1")
	for i := int64(1); i <= 3; i++ {
		if err := w.Write(Entry{Seq: i}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	w.Close()

	stop := errors.New("stop")
	var seen int
	err := ReadFile(dir.Path("s-1"), func(e Entry) error {
		seen++
		if e.Seq == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("err = %v, want stop", err)
	}
	if seen != 2 {
		t.Errorf("seen = %d, want 2", seen)
	}
}

func TestListFiles(t *testing.T) {
	base := t.TempDir()
	dir := Dir(base)
	for _, id := range []string{"b", "a"} {
		w := dir.Open(id)
		if err := w.Write(Entry{SessionID: id}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		w.Close()
	}
	if err := os.WriteFile(filepath.Join(base, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := ListFiles(base)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a"+Ext {
		t.Errorf("files = %v, want a and b journals", files)
	}
}
