// Package engine runs compiled template types over text and exposes the
// results by logical fragment key.
package engine

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/replus/internal/compile"
	"github.com/zjrosen/replus/internal/log"
	"github.com/zjrosen/replus/internal/template"
	"github.com/zjrosen/replus/internal/tracing"
)

// Engine holds one compiled pattern per type, in load order. Engines are
// independent of each other and safe for concurrent parsing.
type Engine struct {
	types  []*compile.CompiledType
	index  map[string]int
	tracer trace.Tracer
}

type options struct {
	compile  compile.Options
	compiler *compile.Compiler
	tracer   trace.Tracer
}

// Option configures New.
type Option func(*options)

// WithCompileOptions sets the options every type is compiled with. It is
// ignored when WithCompiler is given.
func WithCompileOptions(o compile.Options) Option {
	return func(opts *options) { opts.compile = o }
}

// WithCompiler compiles through c, reusing its cache.
func WithCompiler(c *compile.Compiler) Option {
	return func(opts *options) { opts.compiler = c }
}

// WithTracer overrides the tracer used for engine spans.
func WithTracer(t trace.Tracer) Option {
	return func(opts *options) { opts.tracer = t }
}

// New compiles every type of set. It either succeeds for all types or
// returns the first error.
func New(ctx context.Context, set *template.Set, opts ...Option) (_ *Engine, err error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracing.InstrumentationName)
	}
	if o.compiler == nil {
		o.compiler = compile.NewCompiler(o.compile, nil, 0)
	}

	ctx, span := o.tracer.Start(ctx, tracing.SpanEngineNew,
		trace.WithAttributes(attribute.StringSlice(tracing.AttrTypes, set.Types())))
	defer func() { tracing.End(span, err) }()

	types := make([]*compile.CompiledType, 0, set.Len())
	for _, def := range set.Definitions() {
		ct, err := compileOne(ctx, o, def)
		if err != nil {
			log.ErrorErr(log.CatEngine, "engine construction failed", err, "type", def.Type)
			return nil, err
		}
		types = append(types, ct)
	}

	e, err := newEngine(types)
	if err != nil {
		return nil, err
	}
	e.tracer = o.tracer
	log.Info(log.CatEngine, "engine ready", "types", len(types))
	return e, nil
}

func compileOne(ctx context.Context, o options, def template.Definition) (_ *compile.CompiledType, err error) {
	ctx, span := o.tracer.Start(ctx, tracing.SpanCompileType,
		trace.WithAttributes(attribute.String(tracing.AttrType, def.Type)))
	defer func() { tracing.End(span, err) }()

	ct, err := o.compiler.Compile(ctx, def)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int(tracing.AttrSourceBytes, len(ct.Source())))
	return ct, nil
}

// NewFromCompiled builds an engine over already compiled types.
func NewFromCompiled(types ...*compile.CompiledType) (*Engine, error) {
	e, err := newEngine(types)
	if err != nil {
		return nil, err
	}
	e.tracer = otel.Tracer(tracing.InstrumentationName)
	return e, nil
}

func newEngine(types []*compile.CompiledType) (*Engine, error) {
	e := &Engine{
		types: slices.Clone(types),
		index: make(map[string]int, len(types)),
	}
	for i, ct := range e.types {
		if ct == nil {
			return nil, fmt.Errorf("engine: compiled type %d is nil", i)
		}
		if _, ok := e.index[ct.Name()]; ok {
			return nil, fmt.Errorf("engine: type %q loaded twice", ct.Name())
		}
		e.index[ct.Name()] = i
	}
	return e, nil
}

// Types returns the loaded type names in load order.
func (e *Engine) Types() []string {
	names := make([]string, len(e.types))
	for i, ct := range e.types {
		names[i] = ct.Name()
	}
	return names
}

// Type returns the compiled form of one type.
func (e *Engine) Type(name string) (*compile.CompiledType, bool) {
	i, ok := e.index[name]
	if !ok {
		return nil, false
	}
	return e.types[i], true
}
