package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/richinex/lingo/llm"
	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/stream"
)

func newTestStorage(t *testing.T) *SqliteStorage {
	t.Helper()
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestRecordingEvents(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	id, err := storage.CreateRecording(ctx, "ollama", "llama3.2")
	if err != nil {
		t.Fatalf("CreateRecording failed: %v", err)
	}

	// Inserted out of order; read back by sequence.
	for _, seq := range []int{1, 0, 2} {
		raw := []byte{byte('a' + seq)}
		if err := storage.AppendEvent(ctx, id, seq, raw); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	events, err := storage.Events(ctx, id)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if diff := cmp.Diff([][]byte{[]byte("a"), []byte("b"), []byte("c")}, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	rec, err := storage.Recording(ctx, id)
	if err != nil {
		t.Fatalf("Recording failed: %v", err)
	}
	if rec.Provider != "ollama" || rec.Model != "llama3.2" || rec.Events != 3 {
		t.Errorf("unexpected recording %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected creation time")
	}
}

func TestRecordingDuplicateSeq(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	id, _ := storage.CreateRecording(ctx, "gemini", "gemini-2.5-flash")
	if err := storage.AppendEvent(ctx, id, 0, []byte("{}")); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if err := storage.AppendEvent(ctx, id, 0, []byte("{}")); err == nil {
		t.Error("expected an error for a repeated sequence number")
	}
}

func TestRecordingNotFound(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	if _, err := storage.Recording(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := storage.Events(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	first, _ := storage.CreateRecording(ctx, "anthropic", "claude-sonnet-4-5")
	second, _ := storage.CreateRecording(ctx, "ollama", "qwen3")
	if err := storage.AppendEvent(ctx, first, 0, []byte("{}")); err != nil {
		t.Fatal(err)
	}

	list, err := storage.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var ids []string
	for _, rec := range list {
		ids = append(ids, rec.ID)
	}
	if diff := cmp.Diff([]string{second, first}, ids); diff != "" {
		t.Errorf("expected newest first (-want +got):\n%s", diff)
	}

	if err := storage.Delete(ctx, first); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := storage.Recording(ctx, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted recording still present: %v", err)
	}
	list, _ = storage.List(ctx)
	if len(list) != 1 {
		t.Errorf("expected 1 recording, got %d", len(list))
	}
}

func TestOpenSqliteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "recordings.db")
	storage, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	ctx := context.Background()
	id, err := storage.CreateRecording(ctx, "ollama", "llama3.2")
	if err != nil {
		t.Fatalf("CreateRecording failed: %v", err)
	}
	storage.Close()

	reopened, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Recording(ctx, id); err != nil {
		t.Errorf("recording lost across reopen: %v", err)
	}
}

type failingStore struct{ calls int }

func (f *failingStore) AppendEvent(ctx context.Context, id string, seq int, raw []byte) error {
	f.calls++
	return errors.New("disk full")
}

func TestRecorderStopsOnFailure(t *testing.T) {
	store := &failingStore{}
	rec := NewRecorder(context.Background(), store, "r1", nil)

	rec.Record([]byte("{}"))
	rec.Record([]byte("{}"))
	if store.calls != 1 {
		t.Errorf("expected recording to stop after the first failure, got %d calls", store.calls)
	}
	if rec.Err() == nil || rec.Count() != 0 {
		t.Errorf("expected failure to be kept, err=%v count=%d", rec.Err(), rec.Count())
	}
}

func TestRecorderCopiesEvents(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	id, _ := storage.CreateRecording(ctx, "ollama", "llama3.2")
	rec := NewRecorder(ctx, storage, id, nil)

	buf := []byte(`{"a":1}`)
	rec.Record(buf)
	copy(buf, `{"b":2}`)

	events, err := storage.Events(ctx, id)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if string(events[0]) != `{"a":1}` {
		t.Errorf("recorded event aliased the caller's buffer: %s", events[0])
	}
}

// A live Ollama stream is recorded, then replayed from the database into
// the same final message.
func TestRecordAndReplayOllama(t *testing.T) {
	body := strings.Join([]string{
		`{"model":"llama3.2","message":{"role":"assistant","content":"Checking "},"done":false}`,
		`{"model":"llama3.2","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"get_weather","arguments":{"location":"Paris"}}}]},"done":false}`,
		`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`,
	}, "\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, body)
	}))
	defer srv.Close()

	storage := newTestStorage(t)
	ctx := context.Background()
	id, err := storage.CreateRecording(ctx, llm.ProviderOllama.String(), llm.ModelOllamaLlama32)
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder(ctx, storage, id, nil)

	p := llm.NewOllamaProvider(llm.Config{
		Model:   llm.ModelOllamaLlama32,
		BaseURL: srv.URL,
		OnEvent: rec.Record,
		NewID:   func() string { return "call-1" },
	})
	live, err := stream.Last(p.Stream(ctx, []model.Message{model.User("Weather in Paris?")}, nil))
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if rec.Err() != nil || rec.Count() != 3 {
		t.Fatalf("expected 3 recorded events, err=%v count=%d", rec.Err(), rec.Count())
	}

	raws, err := storage.Events(ctx, id)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	replayed, err := stream.Last(llm.Replay(llm.ProviderOllama, raws, nil))
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	if replayed.Text() != "Checking " {
		t.Errorf("unexpected replayed text %q", replayed.Text())
	}
	if len(replayed.ToolCalls()) != 1 || replayed.ToolCalls()[0].Name != "get_weather" {
		t.Fatalf("unexpected replayed calls %+v", replayed.ToolCalls())
	}
	if diff := cmp.Diff(live.ToolCalls()[0].Props, replayed.ToolCalls()[0].Props); diff != "" {
		t.Errorf("replayed arguments differ from live (-live +replay):\n%s", diff)
	}
}
