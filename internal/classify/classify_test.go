package classify

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/jera/internal/apperr"
)

func settings() Settings {
	return Settings{
		DateFormat:       "YYYY-MM-DD",
		FolderTemplate:   "{{year}}/Weekly/",
		FilenameTemplate: "{{year}}-W{{week}}.md",
		HeadingTemplate:  "# Week {{week}} of {{year}}",
	}
}

func TestClassify_PlainBasename(t *testing.T) {
	got, ok, err := Classify("daily/2025-05-12.md", "2025-05-12", settings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a daily note")
	}
	want := time.Date(2025, time.May, 12, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("date = %v, want %v", got, want)
	}
}

func TestClassify_NotADate(t *testing.T) {
	_, ok, err := Classify("notes/ideas.md", "ideas", settings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("non-date basename must not classify")
	}
}

func TestClassify_StrictRejectsDeviations(t *testing.T) {
	_, ok, err := Classify("daily/2025-5-12.md", "2025-5-12", settings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("strict format must reject unpadded month")
	}
}

func TestClassify_RegexWithDateStringCapture(t *testing.T) {
	s := settings()
	s.FilenameRegex = `^daily-(?P<dateString>\d{4}-\d{2}-\d{2})\.md$`
	got, ok, err := Classify("notes/daily-2025-05-12.md", "daily-2025-05-12", s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected classification via capture group")
	}
	if got.Day() != 12 {
		t.Errorf("date = %v", got)
	}
}

func TestClassify_RegexAsPureFilter(t *testing.T) {
	s := settings()
	s.FilenameRegex = `^2025-.*\.md$`
	// No dateString capture: the basename itself is the date text.
	_, ok, err := Classify("2025-05-12.md", "2025-05-12", s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("filter match should fall back to basename parsing")
	}
}

func TestClassify_RegexNoMatch(t *testing.T) {
	s := settings()
	s.FilenameRegex = `^journal-`
	_, ok, err := Classify("2025-05-12.md", "2025-05-12", s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("regex miss must classify as unrecognized")
	}
}

func TestClassify_InvalidRegex(t *testing.T) {
	s := settings()
	s.FilenameRegex = `([unclosed`
	_, _, err := Classify("2025-05-12.md", "2025-05-12", s)
	if !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestWeeklyPathFor(t *testing.T) {
	d := time.Date(2025, time.May, 12, 0, 0, 0, 0, time.UTC)
	got, err := WeeklyPathFor(d, settings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2025/Weekly/2025-W20.md" {
		t.Errorf("path = %q, want %q", got, "2025/Weekly/2025-W20.md")
	}
}

func TestWeeklyPathFor_EmptyTemplate(t *testing.T) {
	s := settings()
	s.FolderTemplate = ""
	_, err := WeeklyPathFor(time.Now(), s)
	if !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestWeeklyPathFor_BadTemplate(t *testing.T) {
	s := settings()
	s.FilenameTemplate = "{{year"
	_, err := WeeklyPathFor(time.Now(), s)
	if !errors.Is(err, apperr.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestWeeklyHeadingFor(t *testing.T) {
	d := time.Date(2025, time.May, 12, 0, 0, 0, 0, time.UTC)
	got := WeeklyHeadingFor(d, settings())
	if got != "# Week 20 of 2025" {
		t.Errorf("heading = %q", got)
	}
}

func TestWeeklyHeadingFor_FallsBackOnBadTemplate(t *testing.T) {
	s := settings()
	s.HeadingTemplate = "{{broken"
	if got := WeeklyHeadingFor(time.Now(), s); got != DefaultHeading {
		t.Errorf("heading = %q, want fallback", got)
	}
}
