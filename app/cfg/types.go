package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath string

	// Feed sources
	InputFile       string
	StartURLs       []string
	CIKOrTickerList []string
	FeedURLTemplate string

	// Alerting
	FilingTypes       []string
	MaxEntriesPerFeed int
	IncludeFullFiling bool
	WebhookURL        string
	ReplayPolicy      string
	FailurePolicy     string

	// Transport
	MaxRequestsPerCrawl int
	RequestsPerSecond   float64
	PollTimeout         time.Duration
	UserAgent           string

	// Kafka mirror (optional)
	KafkaBrokers []string
	KafkaTopic   string

	// Application configuration
	Port              string
	SchedulerInterval int
	APIAccessKey      string
	RunOnce           bool

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
