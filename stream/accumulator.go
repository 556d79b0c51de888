// Package stream folds incremental provider deltas into cumulative messages.
//
// An Accumulator owns the in-progress content blocks of one model turn. Vendor
// specific folds (see package llm) translate their events into the operations
// below and take a Snapshot after every event.
//
// Information Hiding:
// - Block storage and argument buffering hidden
// - Partial JSON handling hidden
package stream

import (
	"io"
	"iter"
	"log/slog"
	"strings"

	ijson "github.com/richinex/lingo/internal/json"
	"github.com/richinex/lingo/model"
)

type blockKind int

const (
	kindText blockKind = iota + 1
	kindToolCall
)

type block struct {
	kind      blockKind
	text      string
	call      model.ToolCall
	reasoning []byte
}

// Accumulator is the mutable state of a single stream fold.
// It is not safe for concurrent use; a fold is strictly sequential.
type Accumulator struct {
	blocks []*block
	args   map[int]*strings.Builder
	logger *slog.Logger
}

// NewAccumulator creates an empty accumulator. A nil logger discards output.
func NewAccumulator(logger *slog.Logger) *Accumulator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Accumulator{
		args:   make(map[int]*strings.Builder),
		logger: logger,
	}
}

func (a *Accumulator) slot(i int) **block {
	if i < 0 {
		return nil
	}
	for len(a.blocks) <= i {
		a.blocks = append(a.blocks, nil)
	}
	return &a.blocks[i]
}

func (a *Accumulator) at(i int) *block {
	if i < 0 || i >= len(a.blocks) {
		return nil
	}
	return a.blocks[i]
}

// StartText opens an empty text block at index i.
func (a *Accumulator) StartText(i int) {
	p := a.slot(i)
	if p == nil {
		a.logger.Warn("ignoring text block with negative index", "index", i)
		return
	}
	if *p != nil {
		a.logger.Debug("restarting block ignored", "index", i)
		return
	}
	*p = &block{kind: kindText}
}

// StartToolCall opens a tool-call block at index i with empty props and an
// empty argument buffer. The id and name are fixed from here on.
func (a *Accumulator) StartToolCall(i int, id, name string, reasoning []byte) {
	p := a.slot(i)
	if p == nil {
		a.logger.Warn("ignoring tool call block with negative index", "index", i)
		return
	}
	if *p != nil {
		a.logger.Debug("restarting block ignored", "index", i)
		return
	}
	*p = &block{
		kind:      kindToolCall,
		call:      model.ToolCall{ID: id, Name: name, Props: map[string]any{}},
		reasoning: reasoning,
	}
	a.args[i] = &strings.Builder{}
}

// AppendText appends delta to the text block at index i.
func (a *Accumulator) AppendText(i int, delta string) {
	b := a.at(i)
	if b == nil || b.kind != kindText {
		a.logger.Warn("text delta for unknown block", "index", i)
		return
	}
	b.text += delta
}

// AppendArgs appends a JSON fragment to the argument buffer of the tool-call
// block at index i, then tries to parse the whole buffer. Props are replaced
// only when the buffer parses; an incomplete buffer is expected.
func (a *Accumulator) AppendArgs(i int, fragment string) {
	b := a.at(i)
	buf, ok := a.args[i]
	if b == nil || b.kind != kindToolCall || !ok {
		a.logger.Warn("argument delta for unknown tool call", "index", i)
		return
	}
	buf.WriteString(fragment)
	props, err := ijson.ParseObject(buf.String())
	if err != nil {
		a.logger.Debug("argument buffer incomplete", "index", i, "len", buf.Len())
		return
	}
	b.call.Props = props
}

// SetProps replaces the props of the tool-call block at index i. Used by
// providers that deliver arguments whole.
func (a *Accumulator) SetProps(i int, props map[string]any) {
	b := a.at(i)
	if b == nil || b.kind != kindToolCall {
		a.logger.Warn("props for unknown tool call", "index", i)
		return
	}
	if props == nil {
		props = map[string]any{}
	}
	b.call.Props = props
}

// Next returns the index following the highest allocated block.
func (a *Accumulator) Next() int {
	return len(a.blocks)
}

// LastText returns the index of the final block when it is a text block.
func (a *Accumulator) LastText() (int, bool) {
	n := len(a.blocks)
	if n == 0 || a.blocks[n-1] == nil || a.blocks[n-1].kind != kindText {
		return 0, false
	}
	return n - 1, true
}

// Snapshot materializes the blocks seen so far as a model message.
// Contents is the dense projection of the blocks: indices never started are
// skipped. The returned message shares props maps with the accumulator and
// must be treated as read-only.
func (a *Accumulator) Snapshot() model.Message {
	contents := make([]model.Content, 0, len(a.blocks))
	for _, b := range a.blocks {
		if b == nil {
			continue
		}
		switch b.kind {
		case kindText:
			contents = append(contents, model.TextContent{Text: b.text})
		case kindToolCall:
			contents = append(contents, model.ToolCallContent{ToolCall: b.call, Reasoning: b.reasoning})
		}
	}
	return model.Message{Role: model.RoleModel, Contents: contents}
}

// Last drains seq and returns the final snapshot. It stops at the first error.
func Last(seq iter.Seq2[model.Message, error]) (model.Message, error) {
	var last model.Message
	for msg, err := range seq {
		if err != nil {
			return model.Message{}, err
		}
		last = msg
	}
	if last.Role == "" {
		last.Role = model.RoleModel
	}
	return last, nil
}
