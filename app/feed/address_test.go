package feed

import "testing"

func TestCompanyFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK=0000320193&type=10-K&output=atom", "0000320193"},
		{"https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&cik=MSFT&output=atom", "MSFT"},
		{"https://www.sec.gov/cgi-bin/browse-edgar?company=Apple&output=atom", "Apple"},
		{"https://www.sec.gov/cgi-bin/browse-edgar?company=Apple&CIK=0000320193", "0000320193"},
		{"https://www.sec.gov/cgi-bin/browse-edgar?action=getcurrent&output=atom", ""},
		{"https://www.sec.gov/cgi-bin/browse-edgar?CIK=&output=atom", ""},
	}

	for _, tt := range tests {
		got := CompanyFromURL(tt.url)
		if tt.expected == "" {
			if got != nil {
				t.Errorf("CompanyFromURL(%q) = %q, expected nil", tt.url, *got)
			}
			continue
		}
		if got == nil || *got != tt.expected {
			t.Errorf("CompanyFromURL(%q) = %v, expected %q", tt.url, got, tt.expected)
		}
	}
}

func TestResolveFeedURLs(t *testing.T) {
	template := "https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK={id}&output=atom"

	urls := ResolveFeedURLs(
		[]string{" https://www.sec.gov/feed-a ", "https://www.sec.gov/feed-a", ""},
		[]string{"AAPL", "BRK A", "AAPL", " "},
		template,
	)

	expected := []string{
		"https://www.sec.gov/feed-a",
		"https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK=AAPL&output=atom",
		"https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK=BRK+A&output=atom",
	}

	if len(urls) != len(expected) {
		t.Fatalf("Expected %d URLs, got %d: %v", len(expected), len(urls), urls)
	}
	for i := range expected {
		if urls[i] != expected[i] {
			t.Errorf("URL %d: expected %s, got %s", i, expected[i], urls[i])
		}
	}
}

func TestResolveFeedURLs_Empty(t *testing.T) {
	if urls := ResolveFeedURLs(nil, []string{"AAPL"}, ""); len(urls) != 0 {
		t.Errorf("Expected no URLs without a template, got %v", urls)
	}
}
