package miru

import (
	"fmt"
	"iter"

	"github.com/ashita-ai/miru/internal/encode"
	"github.com/ashita-ai/miru/semconv"
)

// Stream wraps a lazy chunk sequence for a span whose output only exists once
// the sequence is consumed. Chunks pass through unchanged; accumulate folds
// them into the eventual output value. When the sequence is exhausted the
// span's output attribute is finalized from the accumulated result and the
// span closes. If the consumer abandons iteration early (break, early
// return, cancellation), the span still closes with whatever partial output
// accumulated, tagged with llm.streaming.partial so it is distinguishable
// from a fully-captured result.
//
// The span is typically opened with StartSpan and Streaming set; Stream owns
// its closure from this point on; do not call End on it as well.
//
//	ctx, span, err := miru.StartSpan(ctx, miru.LLMCall{Name: "chat", Model: "gpt-4o", Streaming: true})
//	for chunk := range miru.Stream(span, chunks, func(acc string, c string) string { return acc + c }) {
//	    render(chunk)
//	}
//
// A Stream that is never iterated leaves the span open; constructing one is a
// commitment to consume it.
func Stream[T any](s *Span, seq iter.Seq[T], accumulate func(acc string, chunk T) string) iter.Seq[T] {
	return func(yield func(T) bool) {
		var (
			acc      string
			complete bool
		)
		defer func() {
			if r := recover(); r != nil {
				s.setAttr(semconv.AttrStreaming, true, false)
				s.close(fmt.Errorf("panic: %v", r))
				panic(r)
			}
			s.finishStream(acc, complete)
		}()

		for chunk := range seq {
			acc = accumulate(acc, chunk)
			if !yield(chunk) {
				return
			}
		}
		complete = true
	}
}

// finishStream closes a streaming span with the accumulated output. An
// abandoned stream is still a successfully closed span. An open span that
// never closes is a resource leak, not an acceptable outcome.
func (s *Span) finishStream(acc string, complete bool) {
	s.setAttr(semconv.AttrStreaming, true, false)
	if !complete {
		s.setAttr(semconv.AttrStreamingPartial, true, false)
	}
	if s.capture && s.outAttr != "" && acc != "" && !s.isManual(s.outAttr) {
		encoded, _, err := encode.JSON(acc, s.sizeLimit)
		if err == nil {
			if s.sanitize {
				encoded = encode.Sanitize(encoded, s.sdk.ruleset)
			}
			s.setAttr(s.outAttr, encoded, false)
		}
	}
	s.close(nil)
}
