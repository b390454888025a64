package engine

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/replus/internal/compile"
	"github.com/zjrosen/replus/internal/log"
	"github.com/zjrosen/replus/internal/tracing"
)

// UnknownTypeFilterError is returned when a filter names no loaded type.
type UnknownTypeFilterError struct {
	Filter string
	Known  []string
}

func (e *UnknownTypeFilterError) Error() string {
	return fmt.Sprintf("unknown type filter %q (loaded: %s)", e.Filter, strings.Join(e.Known, ", "))
}

// ParseOptions narrows and post-processes a parse.
type ParseOptions struct {
	// Filters restricts parsing to these types. Empty means all.
	Filters []string
	// Exclude skips these types.
	Exclude []string
	// PurgeOverlaps drops overlapping matches, see PurgeOverlaps.
	PurgeOverlaps bool
}

func (e *Engine) selectTypes(filters, exclude []string) ([]*compile.CompiledType, error) {
	for _, f := range slices.Concat(filters, exclude) {
		if _, ok := e.index[f]; !ok {
			return nil, &UnknownTypeFilterError{Filter: f, Known: e.Types()}
		}
	}
	var selected []*compile.CompiledType
	for _, ct := range e.types {
		if len(filters) > 0 && !slices.Contains(filters, ct.Name()) {
			continue
		}
		if slices.Contains(exclude, ct.Name()) {
			continue
		}
		selected = append(selected, ct)
	}
	return selected, nil
}

// All returns an iterator over the matches of the selected types,
// grouped by type in load order and by start offset within a type.
// Each call to the iterator rescans text from the start. A search error,
// such as a match timeout, is yielded once and ends the sequence.
func (e *Engine) All(text string, filters ...string) (iter.Seq2[*Match, error], error) {
	types, err := e.selectTypes(filters, nil)
	if err != nil {
		return nil, err
	}
	return e.scanAll(context.Background(), text, types), nil
}

func (e *Engine) scanAll(ctx context.Context, text string, types []*compile.CompiledType) iter.Seq2[*Match, error] {
	return func(yield func(*Match, error) bool) {
		runes := []rune(text)
		offs := newByteOffsets(text)
		for _, ct := range types {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !scan(ct, text, runes, offs, yield) {
				return
			}
		}
	}
}

// scan finds the non-overlapping matches of one type. It reports false
// once the consumer stops or a search fails.
func scan(ct *compile.CompiledType, text string, runes []rune, offs byteOffsets, yield func(*Match, error) bool) bool {
	pos := 0
	for pos <= len(runes) {
		m, err := ct.Regexp().FindRunesMatchStartingAt(runes, pos)
		if err != nil {
			yield(nil, fmt.Errorf("type %q: %w", ct.Name(), err))
			return false
		}
		if m == nil {
			return true
		}
		if !yield(newMatch(ct, text, offs, m), nil) {
			return false
		}
		next := m.Index + m.Length
		if m.Length == 0 {
			next++
		}
		pos = next
	}
	return true
}

// Parse returns every match of the selected types. An unknown filter is
// an error, never an empty result.
func (e *Engine) Parse(text string, filters ...string) ([]*Match, error) {
	return e.ParseContext(context.Background(), text, ParseOptions{Filters: filters})
}

// ParseWith parses with filtering, exclusion and overlap purging.
func (e *Engine) ParseWith(text string, opts ParseOptions) ([]*Match, error) {
	return e.ParseContext(context.Background(), text, opts)
}

// ParseContext is ParseWith with a context checked between types and
// used as the parent of the parse span.
func (e *Engine) ParseContext(ctx context.Context, text string, opts ParseOptions) (_ []*Match, err error) {
	ctx, span := e.tracer.Start(ctx, tracing.SpanParse, trace.WithAttributes(
		attribute.StringSlice(tracing.AttrFilters, opts.Filters),
		attribute.Int(tracing.AttrTextLength, len(text)),
	))
	defer func() { tracing.End(span, err) }()

	types, err := e.selectTypes(opts.Filters, opts.Exclude)
	if err != nil {
		return nil, err
	}

	var matches []*Match
	for m, err := range e.scanAll(ctx, text, types) {
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if opts.PurgeOverlaps {
		matches = PurgeOverlaps(matches)
	}

	span.SetAttributes(attribute.Int(tracing.AttrMatchCount, len(matches)))
	log.Debug(log.CatEngine, "parsed", "types", len(types), "matches", len(matches), "bytes", len(text))
	return matches, nil
}

// Search returns the earliest match of any selected type, or nil. Ties
// on the start offset go to the type loaded first.
func (e *Engine) Search(text string, filters ...string) (*Match, error) {
	types, err := e.selectTypes(filters, nil)
	if err != nil {
		return nil, err
	}
	runes := []rune(text)
	offs := newByteOffsets(text)

	var best *Match
	for _, ct := range types {
		m, err := ct.Regexp().FindRunesMatchStartingAt(runes, 0)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", ct.Name(), err)
		}
		if m == nil {
			continue
		}
		if best == nil || offs[m.Index] < best.Start() {
			best = newMatch(ct, text, offs, m)
		}
	}
	return best, nil
}

// PurgeOverlaps orders matches by start offset and removes overlaps:
// a match overlapping the last kept one replaces it only if it ends no
// earlier and is longer.
func PurgeOverlaps(matches []*Match) []*Match {
	sorted := slices.Clone(matches)
	slices.SortStableFunc(sorted, func(a, b *Match) int {
		return cmp.Compare(a.Start(), b.Start())
	})
	if len(sorted) < 2 {
		return sorted
	}

	kept := []*Match{sorted[0]}
	for _, m := range sorted[1:] {
		last := kept[len(kept)-1]
		switch {
		case m.Start() >= last.End():
			kept = append(kept, m)
		case m.End() >= last.End() && m.Len() > last.Len():
			kept[len(kept)-1] = m
		}
	}
	return kept
}
