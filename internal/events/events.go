// Package events publishes notifications about finished CSV imports.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// ImportCompletedType is the routing type of ImportCompleted messages.
const ImportCompletedType = "import.completed"

// ImportCompleted is emitted after a CSV upload has been processed.
type ImportCompleted struct {
	Type            string    `json:"type"`
	UserID          string    `json:"user_id"`
	Filename        string    `json:"filename"`
	Imported        int       `json:"imported"`
	Failed          int       `json:"failed"`
	Skipped         int       `json:"skipped"`
	StorageLocation string    `json:"storage_location,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewImportCompleted stamps an event with its type and the current time.
func NewImportCompleted(userID, filename string, imported, failed, skipped int, location string) ImportCompleted {
	return ImportCompleted{
		Type:            ImportCompletedType,
		UserID:          userID,
		Filename:        filename,
		Imported:        imported,
		Failed:          failed,
		Skipped:         skipped,
		StorageLocation: location,
		Timestamp:       time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e ImportCompleted) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers import events to interested consumers.
type Publisher interface {
	PublishImportCompleted(ctx context.Context, event ImportCompleted) error
	Close() error
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

// PublishImportCompleted implements Publisher.
func (Noop) PublishImportCompleted(context.Context, ImportCompleted) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }
