package tasks

import (
	"github.com/lysyi3m/filing-comb/app/database"
	"github.com/lysyi3m/filing-comb/app/feed"
)

// Pipeline bundles what a feed task needs
type Pipeline struct {
	Fetcher  FeedFetcher
	Parser   *feed.Parser
	Poller   *feed.Poller
	FeedRepo database.FeedRepository
}

func (p *Pipeline) NewProcessFeedTask(feedURL string) *ProcessFeedTask {
	return NewProcessFeedTask(feedURL, p.Fetcher, p.Parser, p.Poller, p.FeedRepo)
}

func (p *Pipeline) NewSyncFeedTask(feedURL string) *SyncFeedTask {
	return NewSyncFeedTask(feedURL, p.FeedRepo)
}
