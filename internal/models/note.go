// Package models defines the domain types for Jera.
package models

import "time"

// Entry is one daily note's representation inside a weekly note's managed
// block. Basename is the unique key; Date is used only for ordering and is
// re-derived from Basename every time the block is parsed.
type Entry struct {
	Basename string    `json:"basename"`
	Date     time.Time `json:"date"`
}

// Epoch is the sentinel date assigned to entries whose basename cannot be
// parsed back into a date. They sort before every parseable entry instead of
// failing the reconciliation.
var Epoch = time.Unix(0, 0).UTC()

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary accumulates the result of a backfill run.
type Summary struct {
	Processed     int `json:"processed"`
	WeeklyTouched int `json:"weekly_touched"`
	Errors        int `json:"errors"`
}
