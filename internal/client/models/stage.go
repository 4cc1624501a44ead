// Package models defines the client-side data models: staged files, backend
// transactions, users, documents and the transient upload run.
package models

import (
	"time"

	"github.com/dmitrijs2005/udinflow/internal/filex"
)

// FileStatus is the lifecycle tag of a StagedFile.
type FileStatus string

const (
	FileStatusStaged      FileStatus = "staged"
	FileStatusTransmitted FileStatus = "transmitted"
)

// StagedFile is a user-selected file held locally until it is uploaded.
type StagedFile struct {
	// ID is a locally generated identifier, stable across restarts and
	// unrelated to any server-side document id.
	ID   string
	Name string
	Size int64
	Type string

	// DocumentType is the catalog key the user assigned; empty until classified.
	DocumentType string
	Status       FileStatus
	AddedAt      time.Time

	// Source carries the content. Files restored from the stage hold a *filex.File.
	Source filex.Source
}

// Classified reports whether the file may be priced, paid for and uploaded.
func (f *StagedFile) Classified() bool {
	return f.DocumentType != ""
}

// StagedRecord is the durable row behind a StagedFile. Content is a base64
// data URL, since the raw handle does not survive persistence.
type StagedRecord struct {
	ID           string
	SessionID    string
	Position     int
	Name         string
	Size         int64
	Type         string
	DocumentType string
	Status       FileStatus
	Content      string
	CreatedAt    time.Time
}

// Session groups the files saved together.
type Session struct {
	ID        string
	CreatedAt time.Time
	Files     int
}
