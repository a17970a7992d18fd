package feed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/filing-comb/app/cfg"
)

// LoadInput reads and validates a YAML input file.
func LoadInput(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var input Input
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateInput(&input); err != nil {
		return nil, fmt.Errorf("invalid input %s: %w", path, err)
	}

	return &input, nil
}

func validateInput(input *Input) error {
	nonNegativeFields := map[string]int{
		"maxRequestsPerCrawl": input.MaxRequestsPerCrawl,
		"maxEntriesPerFeed":   input.MaxEntriesPerFeed,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

// ApplyInput merges an input file into the process configuration. Lists are
// appended to what flags and environment provided; scalars set in the file
// replace the flag values.
func ApplyInput(c *cfg.Cfg, input *Input) {
	c.StartURLs = append(c.StartURLs, input.StartURLs...)
	c.CIKOrTickerList = append(c.CIKOrTickerList, input.CIKOrTickerList...)
	c.FilingTypes = append(c.FilingTypes, input.FilingTypes...)

	if input.MaxRequestsPerCrawl > 0 {
		c.MaxRequestsPerCrawl = input.MaxRequestsPerCrawl
	}
	if input.MaxEntriesPerFeed > 0 {
		c.MaxEntriesPerFeed = input.MaxEntriesPerFeed
	}
	if input.IncludeFullFiling {
		c.IncludeFullFiling = true
	}
	if input.WebhookURL != "" {
		c.WebhookURL = input.WebhookURL
	}
	if input.UserAgent != "" {
		c.UserAgent = input.UserAgent
	}
}
