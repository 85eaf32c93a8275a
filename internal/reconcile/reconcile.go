// Package reconcile implements the idempotent block-reconciliation engine.
// Given a weekly note's full text and one entry to add or remove, it
// produces new full text whose managed region is exactly the canonical
// sorted rendering of the resulting entry set, while preserving everything
// outside the region.
package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/jera/internal/apperr"
	"github.com/starford/jera/internal/datefmt"
	"github.com/starford/jera/internal/models"
	"github.com/starford/jera/internal/parser"
)

// BasenamePlaceholder is the substring of the link template replaced by the
// entry's basename before date-token expansion.
const BasenamePlaceholder = "{{basename}}"

// Settings is the immutable engine configuration snapshot.
type Settings struct {
	StartMarker    string
	EndMarker      string
	SectionHeading string
	LinkTemplate   string
	EnsureHeading  bool
}

// DateFunc re-derives the date of a basename found inside a region.
// ok=false assigns the epoch sentinel so the entry sorts first instead of
// being dropped.
type DateFunc func(basename string) (time.Time, bool)

type opKind int

const (
	opUpsert opKind = iota
	opRemove
)

// Op is a single reconciliation request.
type Op struct {
	kind  opKind
	entry models.Entry
}

// Upsert inserts or refreshes an entry.
func Upsert(e models.Entry) Op { return Op{kind: opUpsert, entry: e} }

// Remove deletes the entry with the given basename.
func Remove(basename string) Op {
	return Op{kind: opRemove, entry: models.Entry{Basename: basename}}
}

// Result reports the reconciled text and whether the caller must persist it.
// When Changed is false, Text is the original input.
type Result struct {
	Text    string
	Changed bool
}

// Engine applies operations against weekly note text. It holds no mutable
// state: every Apply call is a pure function of its inputs.
type Engine struct {
	s       Settings
	dateFor DateFunc
}

// New validates settings and builds an engine. Empty region markers disable
// delimited mode entirely, which the engine refuses to run without.
func New(s Settings, dateFor DateFunc) (*Engine, error) {
	if strings.TrimSpace(s.StartMarker) == "" || strings.TrimSpace(s.EndMarker) == "" {
		return nil, fmt.Errorf("%w: start and end markers must be non-empty", apperr.ErrConfig)
	}
	if s.LinkTemplate == "" {
		return nil, fmt.Errorf("%w: link template must be non-empty", apperr.ErrConfig)
	}
	return &Engine{s: s, dateFor: dateFor}, nil
}

// Apply reconciles op against raw. exists=false means the document is
// absent: an Upsert synthesizes it, a Remove is a no-op. heading is the
// expanded weekly heading used both for synthesis and for the
// heading-presence policy.
func (e *Engine) Apply(raw string, exists bool, heading string, op Op) (Result, error) {
	if !exists {
		if op.kind == opRemove {
			return Result{Text: raw}, nil
		}
		raw = e.synthesize(heading)
	}

	reg, found := parser.SplitRegion(raw, e.s.StartMarker, e.s.EndMarker)
	if op.kind == opRemove && !found {
		return Result{Text: raw}, nil
	}

	entries := e.parseEntries(reg.Body)

	switch op.kind {
	case opUpsert:
		idx := indexOf(entries, op.entry.Basename)
		if idx >= 0 && entries[idx].Date.Equal(op.entry.Date) && exists {
			// Already present and correctly dated: only the heading policy
			// may still force a write.
			return e.headingOnly(raw, heading), nil
		}
		if idx >= 0 {
			entries[idx].Date = op.entry.Date
		} else {
			entries = append(entries, op.entry)
		}
	case opRemove:
		idx := indexOf(entries, op.entry.Basename)
		if idx < 0 {
			return Result{Text: raw}, nil
		}
		entries = append(entries[:idx], entries[idx+1:]...)
	}

	rendered, err := e.render(entries)
	if err != nil {
		return Result{}, err
	}

	before := reg.Before
	if op.kind == opUpsert && exists && e.missingHeading(raw, heading) {
		before = heading + "\n\n" + before
	}

	block := e.s.StartMarker + "\n"
	if rendered != "" {
		block += rendered + "\n"
	}
	block += e.s.EndMarker

	var next string
	if found {
		next = before + block + reg.After
	} else {
		next = e.insertBlock(before, block)
	}

	next = Normalize(next)
	if exists && next == Normalize(raw) {
		return Result{Text: raw}, nil
	}
	return Result{Text: next, Changed: true}, nil
}

// synthesize builds the initial text for an absent weekly note: heading,
// optional section heading, and an empty managed region.
func (e *Engine) synthesize(heading string) string {
	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	if e.s.SectionHeading != "" {
		b.WriteString("\n")
		b.WriteString(e.s.SectionHeading)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(e.s.StartMarker)
	b.WriteString("\n")
	b.WriteString(e.s.EndMarker)
	b.WriteString("\n")
	return b.String()
}

func (e *Engine) parseEntries(body string) []models.Entry {
	names := parser.ExtractEmbeds(body)
	entries := make([]models.Entry, 0, len(names))
	for _, name := range names {
		d, ok := e.dateFor(name)
		if !ok {
			d = models.Epoch
		}
		entries = append(entries, models.Entry{Basename: name, Date: d})
	}
	return entries
}

// render sorts entries by date ascending (ties by basename, deterministic)
// and renders each through the link template.
func (e *Engine) render(entries []models.Entry) (string, error) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].Basename < entries[j].Basename
	})
	lines := make([]string, 0, len(entries))
	for _, en := range entries {
		line := strings.ReplaceAll(e.s.LinkTemplate, BasenamePlaceholder, en.Basename)
		expanded, err := datefmt.Expand(line, en.Date)
		if err != nil {
			return "", fmt.Errorf("link template: %w", err)
		}
		lines = append(lines, expanded)
	}
	return strings.Join(lines, "\n"), nil
}

// headingOnly handles the Upsert short-circuit: the region is untouched but
// a missing heading still gets inserted.
func (e *Engine) headingOnly(raw, heading string) Result {
	if !e.missingHeading(raw, heading) {
		return Result{Text: raw}
	}
	return Result{Text: Normalize(heading + "\n\n" + raw), Changed: true}
}

// missingHeading applies the deliberately lenient presence test: the
// heading's first line appearing anywhere in the text counts as present.
func (e *Engine) missingHeading(raw, heading string) bool {
	if !e.s.EnsureHeading || heading == "" {
		return false
	}
	first, _, _ := strings.Cut(heading, "\n")
	return !strings.Contains(raw, first)
}

// insertBlock creates the managed region inside text when no marker pair
// exists. Insertion point, in priority order: after the configured section
// heading if found; after a freshly appended section heading if one is
// configured; after the first line when a main heading is expected;
// otherwise at the very end.
func (e *Engine) insertBlock(text, block string) string {
	if e.s.SectionHeading != "" {
		if pos, ok := parser.LineIndex(text, e.s.SectionHeading); ok {
			return insertAt(text, pos, block)
		}
		if text != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		text += e.s.SectionHeading + "\n"
		return insertAt(text, len(text), block)
	}
	if e.s.EnsureHeading {
		pos := len(text)
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			pos = nl + 1
		}
		return insertAt(text, pos, block)
	}
	return insertAt(text, len(text), block)
}

// insertAt splices block into text at pos, adding a separating newline only
// when the insertion point does not already end in one.
func insertAt(text string, pos int, block string) string {
	prefix, suffix := text[:pos], text[pos:]
	if prefix != "" && !strings.HasSuffix(prefix, "\n") {
		prefix += "\n"
	}
	out := prefix + block + "\n"
	return out + suffix
}

func indexOf(entries []models.Entry, basename string) int {
	for i := range entries {
		if entries[i].Basename == basename {
			return i
		}
	}
	return -1
}

// Normalize converts line endings to LF, strips trailing whitespace from
// every line, and guarantees exactly one trailing newline.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	s = strings.Join(lines, "\n")
	return strings.TrimRight(s, "\n") + "\n"
}
