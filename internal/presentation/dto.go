package presentation

import (
	"time"

	"github.com/zjrosen/replus/internal/compile"
	"github.com/zjrosen/replus/internal/store"
)

// TypeDTO describes a compiled type.
type TypeDTO struct {
	Name     string     `json:"name"`
	Source   string     `json:"source"`
	Entries  []EntryDTO `json:"entries"`
	Captures []string   `json:"captures"`
}

// EntryDTO describes one top-level pattern of a type.
type EntryDTO struct {
	Index       int      `json:"index"`
	Template    string   `json:"template"`
	CaptureName string   `json:"capture_name"`
	Occurrences []string `json:"occurrences"`
}

// FromCompiled converts a compiled type. source overrides the compiled
// source when rendering another dialect.
func FromCompiled(ct *compile.CompiledType, source string) TypeDTO {
	if source == "" {
		source = ct.Source()
	}
	dto := TypeDTO{
		Name:     ct.Name(),
		Source:   source,
		Captures: ct.CaptureNames(),
	}
	for _, e := range ct.Entries() {
		occs := make([]string, len(e.Occurrences))
		for i, o := range e.Occurrences {
			occs[i] = o.Name
		}
		dto.Entries = append(dto.Entries, EntryDTO{
			Index:       e.Index,
			Template:    e.Template,
			CaptureName: e.CaptureName,
			Occurrences: occs,
		})
	}
	return dto
}

// RunDTO describes a saved parse run.
type RunDTO struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	TextLength int       `json:"text_length"`
	Matches    int       `json:"matches"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromRun converts a stored run.
func FromRun(r store.Run) RunDTO {
	return RunDTO{
		ID:         r.ID,
		Source:     r.Source,
		TextLength: r.TextLength,
		Matches:    r.Matches,
		CreatedAt:  r.CreatedAt,
	}
}
