package engine

// Span is a half-open byte range into the parsed text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns End - Start.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether o lies within s.
func (s Span) Contains(o Span) bool {
	return o.Start >= s.Start && o.End <= s.End
}

// Spannable is the read-only view shared by matches and groups.
type Spannable interface {
	Value() string
	Start() int
	End() int
	Offset() Span
	Len() int
}

type spanned struct {
	text string
	span Span
}

func (s spanned) Value() string { return s.text[s.span.Start:s.span.End] }
func (s spanned) Start() int    { return s.span.Start }
func (s spanned) End() int      { return s.span.End }
func (s spanned) Offset() Span  { return s.span }
func (s spanned) Len() int      { return s.span.Len() }

// byteOffsets maps the rune indices reported by regexp2 to byte offsets
// of text. Ranging over the string keeps invalid UTF-8 bytes aligned with
// the runes []rune(text) produces for them.
type byteOffsets []int

func newByteOffsets(text string) byteOffsets {
	offs := make(byteOffsets, 0, len(text)+1)
	for i := range text {
		offs = append(offs, i)
	}
	return append(offs, len(text))
}

func (o byteOffsets) span(index, length int) Span {
	return Span{Start: o[index], End: o[index+length]}
}
