// Package classify decides whether a note is a daily note, extracts its
// date, and derives the weekly note path and heading that own it.
package classify

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/starford/jera/internal/apperr"
	"github.com/starford/jera/internal/datefmt"
)

// DefaultHeading is the fallback weekly heading used when the configured
// heading template fails to expand. Headings are cosmetic and must never
// block linking.
const DefaultHeading = "# Weekly Note"

// Settings is the immutable classifier configuration snapshot.
type Settings struct {
	// DateFormat is the moment-style pattern daily basenames are parsed with.
	DateFormat string
	// FilenameRegex optionally filters daily notes and may carry a
	// dateString named capture overriding the date text.
	FilenameRegex string
	// FolderTemplate and FilenameTemplate build the weekly note path.
	FolderTemplate   string
	FilenameTemplate string
	// HeadingTemplate builds the heading for newly created weekly notes.
	HeadingTemplate string
}

// Classify reports whether the note at notePath with the given basename is a
// recognized daily note and, if so, its date. A note that simply is not a
// daily note yields ok=false with a nil error; only an uncompilable filename
// pattern is an error (wrapping apperr.ErrConfig).
func Classify(notePath, basename string, s Settings) (time.Time, bool, error) {
	dateText := basename

	if s.FilenameRegex != "" {
		re, err := regexp.Compile(s.FilenameRegex)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%w: filename pattern %q: %v", apperr.ErrConfig, s.FilenameRegex, err)
		}
		m := re.FindStringSubmatch(filepath.Base(notePath))
		if m == nil {
			return time.Time{}, false, nil
		}
		// A dateString capture overrides the date text; a pattern without
		// one acts purely as an inclusion filter.
		if i := re.SubexpIndex("dateString"); i >= 0 && i < len(m) {
			dateText = m[i]
		}
	}

	t, err := datefmt.ParseDate(s.DateFormat, dateText, datefmt.Strict(s.DateFormat))
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// WeeklyPathFor expands the folder and filename templates for date and joins
// them into the weekly note path. An empty template or an expansion failure
// aborts the operation.
func WeeklyPathFor(date time.Time, s Settings) (string, error) {
	if s.FolderTemplate == "" || s.FilenameTemplate == "" {
		return "", fmt.Errorf("%w: weekly folder or filename template is empty", apperr.ErrConfig)
	}
	folder, err := datefmt.Expand(s.FolderTemplate, date)
	if err != nil {
		return "", fmt.Errorf("weekly folder template: %w", err)
	}
	name, err := datefmt.Expand(s.FilenameTemplate, date)
	if err != nil {
		return "", fmt.Errorf("weekly filename template: %w", err)
	}
	return path.Join(filepath.ToSlash(folder), filepath.ToSlash(name)), nil
}

// WeeklyHeadingFor expands the heading template for date, falling back to
// DefaultHeading when the template is empty or fails to expand.
func WeeklyHeadingFor(date time.Time, s Settings) string {
	if strings.TrimSpace(s.HeadingTemplate) == "" {
		return DefaultHeading
	}
	heading, err := datefmt.Expand(s.HeadingTemplate, date)
	if err != nil {
		return DefaultHeading
	}
	return heading
}
