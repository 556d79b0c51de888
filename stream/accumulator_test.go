package stream

import (
	"errors"
	"iter"
	"testing"

	"github.com/richinex/lingo/model"
)

type textDelta struct {
	index int
	start bool
	text  string
}

func applyText(acc *Accumulator, e textDelta) {
	if e.start {
		acc.StartText(e.index)
		return
	}
	acc.AppendText(e.index, e.text)
}

func TestFoldTextMonotonic(t *testing.T) {
	events := Events(
		textDelta{index: 0, start: true},
		textDelta{index: 0, text: "Hel"},
		textDelta{index: 0, text: "lo"},
	)

	var texts []string
	for msg, err := range Fold(NewAccumulator(nil), events, applyText) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.Role != model.RoleModel {
			t.Errorf("expected model role, got %q", msg.Role)
		}
		texts = append(texts, msg.Text())
	}

	want := []string{"", "Hel", "Hello"}
	if len(texts) != len(want) {
		t.Fatalf("expected %d snapshots, got %d: %q", len(want), len(texts), texts)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("snapshot %d: got %q, want %q", i, texts[i], want[i])
		}
	}
}

func TestAppendArgsPartialJSON(t *testing.T) {
	acc := NewAccumulator(nil)
	acc.StartToolCall(0, "call_1", "f", nil)

	acc.AppendArgs(0, `{"a":1`)
	calls := acc.Snapshot().ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(calls))
	}
	if len(calls[0].Props) != 0 {
		t.Errorf("expected empty props after partial delta, got %v", calls[0].Props)
	}

	acc.AppendArgs(0, `}`)
	calls = acc.Snapshot().ToolCalls()
	if calls[0].Props["a"] != float64(1) {
		t.Errorf("expected props {a:1}, got %v", calls[0].Props)
	}
	if calls[0].ID != "call_1" || calls[0].Name != "f" {
		t.Errorf("id/name changed: %+v", calls[0])
	}
}

func TestEarlierSnapshotsUnaffected(t *testing.T) {
	acc := NewAccumulator(nil)
	acc.StartToolCall(0, "c", "f", nil)
	acc.AppendArgs(0, `{"a":1}`)
	first := acc.Snapshot()

	acc.AppendArgs(0, ``)
	acc.SetProps(0, map[string]any{"b": 2})
	second := acc.Snapshot()

	if first.ToolCalls()[0].Props["a"] != float64(1) {
		t.Errorf("earlier snapshot mutated: %v", first.ToolCalls()[0].Props)
	}
	if second.ToolCalls()[0].Props["b"] != 2 {
		t.Errorf("unexpected props %v", second.ToolCalls()[0].Props)
	}
}

func TestSnapshotSkipsHoles(t *testing.T) {
	acc := NewAccumulator(nil)
	acc.StartText(2)
	acc.AppendText(2, "late")
	acc.StartText(0)
	acc.AppendText(0, "first")

	msg := acc.Snapshot()
	if len(msg.Contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(msg.Contents))
	}
	if msg.Text() != "firstlate" {
		t.Errorf("unexpected text %q", msg.Text())
	}
	if acc.Next() != 3 {
		t.Errorf("expected next index 3, got %d", acc.Next())
	}
}

func TestDeltaForUnknownBlockIgnored(t *testing.T) {
	acc := NewAccumulator(nil)
	acc.AppendText(0, "x")
	acc.AppendArgs(1, "{}")
	acc.SetProps(2, nil)
	if n := len(acc.Snapshot().Contents); n != 0 {
		t.Errorf("expected no contents, got %d", n)
	}
}

func TestLastText(t *testing.T) {
	acc := NewAccumulator(nil)
	if _, ok := acc.LastText(); ok {
		t.Error("expected no trailing text block")
	}
	acc.StartText(0)
	if i, ok := acc.LastText(); !ok || i != 0 {
		t.Errorf("expected trailing text at 0, got %d %v", i, ok)
	}
	acc.StartToolCall(1, "c", "f", nil)
	if _, ok := acc.LastText(); ok {
		t.Error("tool call must end the trailing text block")
	}
}

func TestFoldStopsOnError(t *testing.T) {
	boom := errors.New("connection reset")
	events := iter.Seq2[textDelta, error](func(yield func(textDelta, error) bool) {
		if !yield(textDelta{index: 0, start: true}, nil) {
			return
		}
		if !yield(textDelta{index: 0, text: "Hi"}, nil) {
			return
		}
		if !yield(textDelta{}, boom) {
			return
		}
		yield(textDelta{index: 0, text: "garbage"}, nil)
	})

	var snapshots int
	var gotErr error
	for msg, err := range Fold(NewAccumulator(nil), events, applyText) {
		if err != nil {
			gotErr = err
			continue
		}
		snapshots++
		if msg.Text() == "Higarbage" {
			t.Fatal("snapshot emitted after failure")
		}
	}
	if !errors.Is(gotErr, boom) {
		t.Fatalf("expected transport error, got %v", gotErr)
	}
	if snapshots != 2 {
		t.Errorf("expected 2 snapshots before failure, got %d", snapshots)
	}
}

func TestLast(t *testing.T) {
	events := Events(
		textDelta{index: 0, start: true},
		textDelta{index: 0, text: "done"},
	)
	msg, err := Last(Fold(NewAccumulator(nil), events, applyText))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Text() != "done" {
		t.Errorf("expected final text, got %q", msg.Text())
	}

	empty, err := Last(Fold(NewAccumulator(nil), Events[textDelta](), applyText))
	if err != nil || empty.Role != model.RoleModel || len(empty.Contents) != 0 {
		t.Errorf("unexpected empty result %+v, %v", empty, err)
	}
}
