// Package linker wires the date classifier and the block reconciler to
// vault storage: it owns single-note processing, removal on delete/rename,
// and the backfill batch.
package linker

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/jera/internal/classify"
	"github.com/starford/jera/internal/models"
	"github.com/starford/jera/internal/reconcile"
	"github.com/starford/jera/internal/storage"
)

// Config is the immutable configuration snapshot the service operates on.
type Config struct {
	DailyFormat      string
	FilenameRegex    string
	FolderTemplate   string
	FilenameTemplate string
	HeadingTemplate  string
	SectionHeading   string
	LinkTemplate     string
	StartMarker      string
	EndMarker        string
	EnsureHeading    bool
}

// EventFunc is called after every persisted change.
// kind is one of "link.upserted", "link.removed".
type EventFunc func(kind, weeklyPath, basename string)

// Service coordinates classification, reconciliation and storage.
type Service struct {
	store   storage.Provider
	engine  *reconcile.Engine
	cls     classify.Settings
	logger  *slog.Logger
	onEvent EventFunc

	mu      sync.Mutex
	lastRun *models.Summary
}

// NewService builds a service from a configuration snapshot. Empty region
// markers are rejected here, before any document can be touched.
func NewService(store storage.Provider, cfg Config, logger *slog.Logger) (*Service, error) {
	cls := classify.Settings{
		DateFormat:       cfg.DailyFormat,
		FilenameRegex:    cfg.FilenameRegex,
		FolderTemplate:   cfg.FolderTemplate,
		FilenameTemplate: cfg.FilenameTemplate,
		HeadingTemplate:  cfg.HeadingTemplate,
	}
	dateFor := func(basename string) (time.Time, bool) {
		t, ok, err := classify.Classify(basename, basename, cls)
		if err != nil || !ok {
			return time.Time{}, false
		}
		return t, true
	}
	engine, err := reconcile.New(reconcile.Settings{
		StartMarker:    cfg.StartMarker,
		EndMarker:      cfg.EndMarker,
		SectionHeading: cfg.SectionHeading,
		LinkTemplate:   cfg.LinkTemplate,
		EnsureHeading:  cfg.EnsureHeading,
	}, dateFor)
	if err != nil {
		return nil, err
	}
	return &Service{store: store, engine: engine, cls: cls, logger: logger}, nil
}

// SetNotifier registers a callback invoked after each persisted change.
func (s *Service) SetNotifier(fn EventFunc) { s.onEvent = fn }

// Basename returns the note name a vault-relative path is keyed by:
// the file name without directories or the .md extension.
func Basename(notePath string) string {
	return strings.TrimSuffix(path.Base(toSlash(notePath)), ".md")
}

// toSlash normalizes separators so Windows-style event paths key the same.
func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// ProcessOne links the daily note at notePath into its weekly note.
// Returns false with a nil error for notes that are not daily notes.
func (s *Service) ProcessOne(ctx context.Context, notePath string) (bool, error) {
	_, changed, err := s.upsert(ctx, notePath)
	return changed, err
}

// OnCreated handles a created or modified daily note.
func (s *Service) OnCreated(ctx context.Context, notePath string) (bool, error) {
	return s.ProcessOne(ctx, notePath)
}

// ResolveWeekly returns the weekly note path owning the daily note at
// notePath. ok=false means the note is not a daily note.
func (s *Service) ResolveWeekly(notePath string) (string, bool, error) {
	basename := Basename(notePath)
	date, ok, err := classify.Classify(notePath, basename, s.cls)
	if err != nil || !ok {
		return "", false, err
	}
	weekly, err := classify.WeeklyPathFor(date, s.cls)
	if err != nil {
		return "", false, err
	}
	return weekly, true, nil
}

// OnDeleted removes the daily note's link from its weekly note.
func (s *Service) OnDeleted(_ context.Context, notePath string) (bool, error) {
	basename := Basename(notePath)
	weekly, ok, err := s.ResolveWeekly(notePath)
	if err != nil || !ok {
		return false, err
	}
	if !s.store.Exists(weekly) {
		return false, nil
	}
	raw, err := s.store.Read(weekly)
	if err != nil {
		return false, err
	}
	res, err := s.engine.Apply(string(raw), true, "", reconcile.Remove(basename))
	if err != nil {
		return false, fmt.Errorf("reconcile %s: %w", weekly, err)
	}
	if !res.Changed {
		return false, nil
	}
	if err := s.store.Write(weekly, []byte(res.Text)); err != nil {
		return false, err
	}
	s.logger.Info("link removed",
		slog.String("weekly", weekly),
		slog.String("daily", basename))
	s.notify("link.removed", weekly, basename)
	return true, nil
}

// OnRenamed unlinks the old name and links the new one.
func (s *Service) OnRenamed(ctx context.Context, oldPath, newPath string) (bool, error) {
	removed, err := s.OnDeleted(ctx, oldPath)
	if err != nil {
		return removed, err
	}
	added, err := s.ProcessOne(ctx, newPath)
	return removed || added, err
}

// BackfillAll processes every note in the vault once. Per-document failures
// are counted and logged but never abort the batch.
func (s *Service) BackfillAll(ctx context.Context, verbose bool) (models.Summary, error) {
	metas, err := s.store.List("")
	if err != nil {
		return models.Summary{}, err
	}

	var sum models.Summary
	touched := make(map[string]struct{})
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		weekly, changed, err := s.upsert(ctx, m.Path)
		if err != nil {
			sum.Errors++
			s.logger.Warn("backfill: note failed",
				slog.String("path", m.Path),
				slog.String("error", err.Error()))
			continue
		}
		if weekly == "" {
			// Not a daily note.
			continue
		}
		sum.Processed++
		if changed {
			touched[weekly] = struct{}{}
			if verbose {
				s.logger.Info("backfill: linked",
					slog.String("daily", m.Path),
					slog.String("weekly", weekly))
			}
		}
	}
	sum.WeeklyTouched = len(touched)

	s.mu.Lock()
	s.lastRun = &sum
	s.mu.Unlock()

	s.logger.Info("backfill complete",
		slog.Int("processed", sum.Processed),
		slog.Int("weekly_touched", sum.WeeklyTouched),
		slog.Int("errors", sum.Errors))
	return sum, nil
}

// LastRun returns the summary of the most recent backfill, or nil.
func (s *Service) LastRun() *models.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	cp := *s.lastRun
	return &cp
}

// upsert is the shared read-reconcile-write step. It returns the weekly
// path ("" for classification misses) and whether a write happened.
func (s *Service) upsert(_ context.Context, notePath string) (string, bool, error) {
	basename := Basename(notePath)
	date, ok, err := classify.Classify(notePath, basename, s.cls)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	weekly, err := classify.WeeklyPathFor(date, s.cls)
	if err != nil {
		return "", false, err
	}
	if weekly == toSlash(notePath) {
		// A weekly note that itself classifies as daily must not link to itself.
		return "", false, nil
	}
	heading := classify.WeeklyHeadingFor(date, s.cls)

	var raw string
	exists := s.store.Exists(weekly)
	if exists {
		data, err := s.store.Read(weekly)
		if err != nil {
			return weekly, false, err
		}
		raw = string(data)
	}

	entry := models.Entry{Basename: basename, Date: date}
	res, err := s.engine.Apply(raw, exists, heading, reconcile.Upsert(entry))
	if err != nil {
		return weekly, false, fmt.Errorf("reconcile %s: %w", weekly, err)
	}
	if !res.Changed {
		return weekly, false, nil
	}
	if err := s.store.Write(weekly, []byte(res.Text)); err != nil {
		return weekly, false, err
	}
	s.logger.Info("link upserted",
		slog.String("weekly", weekly),
		slog.String("daily", basename))
	s.notify("link.upserted", weekly, basename)
	return weekly, true, nil
}

func (s *Service) notify(kind, weekly, basename string) {
	if s.onEvent != nil {
		s.onEvent(kind, weekly, basename)
	}
}
