package datefmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"github.com/starford/jera/internal/apperr"
)

var placeholderRe = regexp.MustCompile(`\{\{(.*?)\}\}`)

// weekCfg makes startOf/endOf week land on Monday, consistent with the ISO
// week numbers used by the ww and {{week}} tokens.
var weekCfg = &now.Config{WeekStartDay: time.Monday}

// Expand replaces every {{ <token>[, <op>=<arg>]* }} placeholder in template
// with the token rendered for t. Ops (add, subtract, startOf, endOf) are
// applied left to right to a private copy of t; unrecognized ops or ops with
// a malformed argument are skipped so template authoring stays forgiving.
// Non-placeholder text passes through unchanged.
//
// The only failure mode is a pathological template: an opening {{ with no
// closing }} yields an error wrapping apperr.ErrFormat.
func Expand(template string, t time.Time) (string, error) {
	var b strings.Builder
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(template, -1) {
		b.WriteString(template[last:loc[0]])
		b.WriteString(expandPlaceholder(template[loc[2]:loc[3]], t))
		last = loc[1]
	}
	tail := template[last:]
	if strings.Contains(tail, "{{") {
		return "", fmt.Errorf("%w: unterminated placeholder in %q", apperr.ErrFormat, template)
	}
	b.WriteString(tail)
	return b.String(), nil
}

func expandPlaceholder(inner string, t time.Time) string {
	parts := strings.Split(inner, ",")
	token := strings.TrimSpace(parts[0])
	for _, raw := range parts[1:] {
		name, arg, ok := strings.Cut(strings.TrimSpace(raw), "=")
		if !ok {
			continue
		}
		t = applyOp(t, strings.TrimSpace(name), strings.TrimSpace(arg))
	}
	return renderNamed(token, t)
}

// renderNamed resolves the named calendar tokens; anything else is treated
// as a raw format pattern.
func renderNamed(token string, t time.Time) string {
	switch token {
	case "year":
		y, _ := t.ISOWeek()
		return fmt.Sprintf("%04d", y)
	case "week":
		_, w := t.ISOWeek()
		return fmt.Sprintf("%02d", w)
	case "month":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "day":
		return fmt.Sprintf("%02d", t.Day())
	case "quarter":
		return fmt.Sprintf("%d", (int(t.Month())-1)/3+1)
	case "date":
		return Format("YYYY-MM-DD", t)
	}
	return Format(token, t)
}

func applyOp(t time.Time, name, arg string) time.Time {
	switch name {
	case "add":
		return shift(t, arg, 1)
	case "subtract":
		return shift(t, arg, -1)
	case "startOf":
		return boundary(t, arg, false)
	case "endOf":
		return boundary(t, arg, true)
	}
	return t
}

// shift moves t by "<n> <unit>" in the given direction. A non-numeric or
// missing amount leaves t untouched.
func shift(t time.Time, arg string, sign int) time.Time {
	amount, unit, ok := strings.Cut(arg, " ")
	if !ok {
		return t
	}
	n, err := strconv.Atoi(strings.TrimSpace(amount))
	if err != nil {
		return t
	}
	n *= sign
	switch normalizeUnit(unit) {
	case "year":
		return t.AddDate(n, 0, 0)
	case "quarter":
		return t.AddDate(0, 3*n, 0)
	case "month":
		return t.AddDate(0, n, 0)
	case "week":
		return t.AddDate(0, 0, 7*n)
	case "day":
		return t.AddDate(0, 0, n)
	case "hour":
		return t.Add(time.Duration(n) * time.Hour)
	case "minute":
		return t.Add(time.Duration(n) * time.Minute)
	case "second":
		return t.Add(time.Duration(n) * time.Second)
	}
	return t
}

func boundary(t time.Time, unit string, end bool) time.Time {
	n := weekCfg.With(t)
	switch normalizeUnit(unit) {
	case "year":
		if end {
			return n.EndOfYear()
		}
		return n.BeginningOfYear()
	case "quarter":
		if end {
			return n.EndOfQuarter()
		}
		return n.BeginningOfQuarter()
	case "month":
		if end {
			return n.EndOfMonth()
		}
		return n.BeginningOfMonth()
	case "week":
		if end {
			return n.EndOfWeek()
		}
		return n.BeginningOfWeek()
	case "day":
		if end {
			return n.EndOfDay()
		}
		return n.BeginningOfDay()
	case "hour":
		if end {
			return n.EndOfHour()
		}
		return n.BeginningOfHour()
	case "minute":
		if end {
			return n.EndOfMinute()
		}
		return n.BeginningOfMinute()
	}
	return t
}

func normalizeUnit(u string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(u)), "s")
}
