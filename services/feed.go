package services

import (
	"context"

	"plcvisualizer/models"
)

// Feed delivers live values. The Updates channel is closed when the feed ends.
type Feed interface {
	Updates() <-chan models.ValueUpdate
	Close() error
}

// FeedOpener dials a feed for the given settings
type FeedOpener func(ctx context.Context, settings models.PLCConnectionSettings) (Feed, error)
