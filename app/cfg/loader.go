package cfg

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/filing-comb.db" description:"SQLite database file"`

	// Feed sources
	InputFile       string   `long:"input" env:"INPUT_FILE" description:"YAML input file with startUrls, cikOrTickerList, filingTypes and friends"`
	StartURLs       []string `long:"start-url" env:"START_URLS" env-delim:"," description:"Feed address to poll (repeatable)"`
	CIKOrTickerList []string `long:"cik" env:"CIK_OR_TICKER_LIST" env-delim:"," description:"CIK or ticker used to template an EDGAR feed address (repeatable)"`
	FeedURLTemplate string   `long:"feed-url-template" env:"FEED_URL_TEMPLATE" default:"https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK={id}&type=&dateb=&owner=include&count=40&output=atom" description:"Feed address template, {id} is replaced by each CIK or ticker"`

	// Alerting
	FilingTypes       []string `long:"filing-type" env:"FILING_TYPES" env-delim:"," description:"Filing type to alert on (repeatable, empty accepts all)"`
	MaxEntriesPerFeed int      `long:"max-entries-per-feed" env:"MAX_ENTRIES_PER_FEED" default:"40" description:"Number of most recent entries considered per poll"`
	IncludeFullFiling bool     `long:"include-full-filing" env:"INCLUDE_FULL_FILING" description:"Fetch the linked filing document and attach its text"`
	WebhookURL        string   `long:"webhook-url" env:"WEBHOOK_URL" description:"Notification target for accepted filings (optional)"`
	ReplayPolicy      string   `long:"replay-policy" env:"REPLAY_POLICY" default:"window" choice:"window" choice:"latest" description:"Entries treated as new when the cursor is missing from the window"`
	FailurePolicy     string   `long:"failure-policy" env:"FAILURE_POLICY" default:"advance" choice:"advance" choice:"hold" description:"Whether the cursor moves past entries that failed processing"`

	// Transport
	MaxRequestsPerCrawl int     `long:"max-requests-per-crawl" env:"MAX_REQUESTS_PER_CRAWL" default:"5" description:"Number of feeds polled concurrently"`
	RequestsPerSecond   float64 `long:"requests-per-second" env:"REQUESTS_PER_SECOND" default:"10" description:"Outbound request rate limit"`
	PollTimeout         int     `long:"poll-timeout" env:"POLL_TIMEOUT" default:"300" description:"Timeout of a single feed poll in seconds"`
	UserAgent           string  `long:"user-agent" env:"USER_AGENT" default:"Filing Comb/1.0 admin@example.com" description:"User agent string for HTTP requests"`

	// Kafka mirror
	KafkaBrokers []string `long:"kafka-broker" env:"KAFKA_BROKERS" env-delim:"," description:"Kafka broker address for the alert mirror (optional, repeatable)"`
	KafkaTopic   string   `long:"kafka-topic" env:"KAFKA_TOPIC" default:"filing-alerts" description:"Kafka topic for the alert mirror"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"300" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	RunOnce           bool   `long:"once" env:"RUN_ONCE" description:"Poll every feed once and exit"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses args (os.Args when nil) and the environment.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.MaxRequestsPerCrawl <= 0 {
		return nil, fmt.Errorf("max requests per crawl must be positive")
	}
	if raw.MaxEntriesPerFeed < 0 {
		return nil, fmt.Errorf("max entries per feed must be non-negative")
	}

	cfg := &Cfg{
		DBPath:              raw.DBPath,
		InputFile:           raw.InputFile,
		StartURLs:           splitList(raw.StartURLs),
		CIKOrTickerList:     splitList(raw.CIKOrTickerList),
		FeedURLTemplate:     raw.FeedURLTemplate,
		FilingTypes:         splitList(raw.FilingTypes),
		MaxEntriesPerFeed:   raw.MaxEntriesPerFeed,
		IncludeFullFiling:   raw.IncludeFullFiling,
		WebhookURL:          raw.WebhookURL,
		ReplayPolicy:        raw.ReplayPolicy,
		FailurePolicy:       raw.FailurePolicy,
		MaxRequestsPerCrawl: raw.MaxRequestsPerCrawl,
		RequestsPerSecond:   raw.RequestsPerSecond,
		PollTimeout:         time.Duration(raw.PollTimeout) * time.Second,
		UserAgent:           raw.UserAgent,
		KafkaBrokers:        splitList(raw.KafkaBrokers),
		KafkaTopic:          raw.KafkaTopic,
		Port:                raw.Port,
		SchedulerInterval:   raw.SchedulerInterval,
		APIAccessKey:        raw.APIAccessKey,
		RunOnce:             raw.RunOnce,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// splitList accepts repeated flags as well as comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
