package store

import (
	"context"

	"github.com/ticketshield/citation-intake/internal/domain"
)

// ChangeType enumerates document change kinds surfaced by the feed.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Change is one document change observed on the case collection.
type Change struct {
	Type   ChangeType
	CaseID string
	Case   *domain.Case
}

// ChangeHandler receives batches of document changes as they occur.
type ChangeHandler func(ctx context.Context, changes []Change)

// ErrorHandler receives feed-transport errors. A call means the
// subscription is dead and must be re-established by the consumer.
type ErrorHandler func(err error)

// ChangeFeed is a subscription feed over the case collection.
type ChangeFeed interface {
	Subscribe(ctx context.Context, onChange ChangeHandler, onError ErrorHandler) (func(), error)
}
