// Package datefmt renders and parses dates using moment-style format
// patterns (YYYY-MM-DD, gggg-[W]ww, ...) and expands {{token}} templates.
package datefmt

import (
	"fmt"
	"strings"
	"time"
)

// segment is one piece of a tokenized pattern.
type segment struct {
	text    string
	isToken bool
}

// tokens recognized by the scanner, longest first so greedy matching works.
var tokens = []string{
	"YYYY", "GGGG", "gggg", "MMMM", "dddd",
	"MMM", "ddd",
	"YY", "MM", "DD", "HH", "hh", "mm", "ss", "ww", "WW",
	"M", "D", "d", "H", "h", "m", "s", "A", "a", "w", "W", "Q", "E",
}

// layouts maps tokens to Go reference layouts where one exists. Week-based
// tokens have no layout equivalent and are format-only.
var layouts = map[string]string{
	"YYYY": "2006", "YY": "06",
	"MM": "01", "M": "1", "MMM": "Jan", "MMMM": "January",
	"DD": "02", "D": "2",
	"ddd": "Mon", "dddd": "Monday",
	"HH": "15", "hh": "03", "h": "3",
	"mm": "04", "m": "4",
	"ss": "05", "s": "5",
	"A": "PM", "a": "pm",
}

// tokenize splits a pattern into literal and token segments. Text inside
// square brackets is literal (moment-style escaping).
func tokenize(pattern string) []segment {
	var segs []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(pattern) {
		if pattern[i] == '[' {
			end := strings.IndexByte(pattern[i+1:], ']')
			if end >= 0 {
				lit.WriteString(pattern[i+1 : i+1+end])
				i += end + 2
				continue
			}
		}
		matched := false
		for _, tok := range tokens {
			if strings.HasPrefix(pattern[i:], tok) {
				flush()
				segs = append(segs, segment{text: tok, isToken: true})
				i += len(tok)
				matched = true
				break
			}
		}
		if !matched {
			lit.WriteByte(pattern[i])
			i++
		}
	}
	flush()
	return segs
}

// Format renders t according to a moment-style pattern. Unrecognized letter
// runs are emitted verbatim, matching the leniency of the template language.
func Format(pattern string, t time.Time) string {
	var b strings.Builder
	for _, seg := range tokenize(pattern) {
		if !seg.isToken {
			b.WriteString(seg.text)
			continue
		}
		b.WriteString(renderToken(seg.text, t))
	}
	return b.String()
}

func renderToken(tok string, t time.Time) string {
	switch tok {
	case "YYYY":
		return fmt.Sprintf("%04d", t.Year())
	case "YY":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "gggg", "GGGG":
		y, _ := t.ISOWeek()
		return fmt.Sprintf("%04d", y)
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "MM":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "M":
		return fmt.Sprintf("%d", int(t.Month()))
	case "DD":
		return fmt.Sprintf("%02d", t.Day())
	case "D":
		return fmt.Sprintf("%d", t.Day())
	case "dddd":
		return t.Weekday().String()
	case "ddd":
		return t.Weekday().String()[:3]
	case "d":
		return fmt.Sprintf("%d", int(t.Weekday()))
	case "E":
		wd := int(t.Weekday())
		if wd == 0 {
			wd = 7
		}
		return fmt.Sprintf("%d", wd)
	case "HH":
		return fmt.Sprintf("%02d", t.Hour())
	case "H":
		return fmt.Sprintf("%d", t.Hour())
	case "hh", "h":
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		if tok == "hh" {
			return fmt.Sprintf("%02d", h)
		}
		return fmt.Sprintf("%d", h)
	case "mm":
		return fmt.Sprintf("%02d", t.Minute())
	case "m":
		return fmt.Sprintf("%d", t.Minute())
	case "ss":
		return fmt.Sprintf("%02d", t.Second())
	case "s":
		return fmt.Sprintf("%d", t.Second())
	case "A":
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case "a":
		if t.Hour() < 12 {
			return "am"
		}
		return "pm"
	case "ww", "WW":
		_, w := t.ISOWeek()
		return fmt.Sprintf("%02d", w)
	case "w", "W":
		_, w := t.ISOWeek()
		return fmt.Sprintf("%d", w)
	case "Q":
		return fmt.Sprintf("%d", (int(t.Month())-1)/3+1)
	}
	return tok
}

// Strict reports whether pattern qualifies for strict parsing: every
// alphanumeric character belongs to a recognized token. Patterns embedding
// literal words (including bracket-escaped text) parse leniently so the
// literal parts cannot cause false negatives.
func Strict(pattern string) bool {
	for _, seg := range tokenize(pattern) {
		if seg.isToken {
			continue
		}
		for _, r := range seg.text {
			if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
				return false
			}
		}
	}
	return true
}

// ParseDate parses s against a moment-style pattern. Week-based tokens have
// no Go layout equivalent and make the pattern unparseable. In strict mode
// the parsed value must re-format to exactly s.
func ParseDate(pattern, s string, strict bool) (time.Time, error) {
	var layout strings.Builder
	for _, seg := range tokenize(pattern) {
		if !seg.isToken {
			layout.WriteString(seg.text)
			continue
		}
		l, ok := layouts[seg.text]
		if !ok {
			return time.Time{}, fmt.Errorf("datefmt: token %q is not parseable", seg.text)
		}
		layout.WriteString(l)
	}
	t, err := time.Parse(layout.String(), s)
	if err != nil {
		return time.Time{}, err
	}
	if strict && Format(pattern, t) != s {
		return time.Time{}, fmt.Errorf("datefmt: %q does not strictly match %q", s, pattern)
	}
	return t, nil
}
