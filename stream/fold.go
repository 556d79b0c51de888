package stream

import (
	"iter"

	"github.com/richinex/lingo/model"
)

// Step applies one vendor event to the accumulator.
type Step[E any] func(acc *Accumulator, event E)

// Fold applies step to every event of events and yields a snapshot after
// each one. A source error is yielded once and ends the sequence, so no
// snapshot is produced after a failure.
func Fold[E any](acc *Accumulator, events iter.Seq2[E, error], step Step[E]) iter.Seq2[model.Message, error] {
	return func(yield func(model.Message, error) bool) {
		for event, err := range events {
			if err != nil {
				yield(model.Message{}, err)
				return
			}
			step(acc, event)
			if !yield(acc.Snapshot(), nil) {
				return
			}
		}
	}
}

// Events adapts a slice of scripted events into an event sequence.
func Events[E any](events ...E) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		for _, e := range events {
			if !yield(e, nil) {
				return
			}
		}
	}
}
