package tracing

// Span names.
const (
	SpanEngineNew   = "engine.new"
	SpanCompileType = "compile.type"
	SpanParse       = "engine.parse"
	SpanStoreSave   = "store.save_run"
)

// Span attribute keys.
const (
	AttrType        = "replus.type"
	AttrTypes       = "replus.types"
	AttrFilters     = "replus.filters"
	AttrTextLength  = "replus.text.length"
	AttrMatchCount  = "replus.match.count"
	AttrSourceBytes = "replus.source.bytes"
	AttrRunID       = "replus.run.id"
)
