package api

import (
	"context"

	"github.com/lysyi3m/filing-comb/app/database"
	"github.com/lysyi3m/filing-comb/app/feed"
	"github.com/lysyi3m/filing-comb/app/tasks"
)

type GeneratorInterface interface {
	Run(title, selfLink string, alerts []feed.Alert) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type CursorReader interface {
	Load(ctx context.Context, feedURL string) (feed.Cursor, error)
}

type Handler struct {
	feedRepo  database.FeedRepository
	alertRepo database.AlertRepository
	cursors   CursorReader
	generator GeneratorInterface
	scheduler tasks.TaskSchedulerInterface
	version   string
}
