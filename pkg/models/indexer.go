// Package models defines the domain types shared across indexerd
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openindexer/indexerd/pkg/errors"
)

// IndexerStatus is the lifecycle state of an indexer
type IndexerStatus string

const (
	// IndexerStatusCreated means the indexer is registered but not running
	IndexerStatusCreated IndexerStatus = "Created"
	// IndexerStatusRunning means the indexer process is up
	IndexerStatusRunning IndexerStatus = "Running"
	// IndexerStatusStopped means the indexer was stopped cleanly
	IndexerStatusStopped IndexerStatus = "Stopped"
	// IndexerStatusFailedRunning means the process exited unexpectedly
	IndexerStatusFailedRunning IndexerStatus = "FailedRunning"
	// IndexerStatusFailedStopping means a stop request could not terminate the process
	IndexerStatusFailedStopping IndexerStatus = "FailedStopping"
)

// IndexerType identifies the kind of indexer handler
type IndexerType string

const (
	// IndexerTypeWebhook posts indexed events to a target URL
	IndexerTypeWebhook IndexerType = "Webhook"
)

// ParseIndexerStatus parses a status string, rejecting unknown variants
func ParseIndexerStatus(s string) (IndexerStatus, error) {
	switch IndexerStatus(s) {
	case IndexerStatusCreated, IndexerStatusRunning, IndexerStatusStopped,
		IndexerStatusFailedRunning, IndexerStatusFailedStopping:
		return IndexerStatus(s), nil
	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "unknown indexer status %q", s)
	}
}

// ParseIndexerType parses a type string, rejecting unknown variants
func ParseIndexerType(s string) (IndexerType, error) {
	switch IndexerType(s) {
	case IndexerTypeWebhook:
		return IndexerType(s), nil
	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "unknown indexer type %q", s)
	}
}

// CanTransition reports whether the status may move to next.
// Created -> Running; Running -> Stopped | FailedRunning | FailedStopping.
func (s IndexerStatus) CanTransition(next IndexerStatus) bool {
	switch s {
	case IndexerStatusCreated:
		return next == IndexerStatusRunning
	case IndexerStatusRunning:
		switch next {
		case IndexerStatusStopped, IndexerStatusFailedRunning, IndexerStatusFailedStopping:
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed
func (s IndexerStatus) IsTerminal() bool {
	switch s {
	case IndexerStatusStopped, IndexerStatusFailedRunning, IndexerStatusFailedStopping:
		return true
	}
	return false
}

// Indexer is a registered indexer and its lifecycle state
type Indexer struct {
	ID        uuid.UUID     `json:"id"`
	Status    IndexerStatus `json:"status"`
	Type      IndexerType   `json:"indexer_type"`
	ProcessID *int64        `json:"process_id,omitempty"`
	TargetURL string        `json:"target_url"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewIndexer returns a Created indexer of the given type
func NewIndexer(indexerType IndexerType, targetURL string) *Indexer {
	now := time.Now().UTC()
	return &Indexer{
		ID:        uuid.New(),
		Status:    IndexerStatusCreated,
		Type:      indexerType,
		TargetURL: targetURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ScriptKey returns the object storage key for the indexer's script
func (i *Indexer) ScriptKey() string {
	return ScriptKey(i.ID)
}

// ScriptKey returns the object storage key for an indexer id
func ScriptKey(id uuid.UUID) string {
	return "scripts/" + id.String() + ".js"
}

// IndexerStat is one time-series heartbeat sample from a running indexer
type IndexerStat struct {
	IndexerID       uuid.UUID `json:"indexer_id"`
	Time            time.Time `json:"time"`
	BlocksProcessed int64     `json:"blocks_processed"`
	HeadBlock       int64     `json:"head_block"`
}
