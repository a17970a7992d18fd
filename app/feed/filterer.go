package feed

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// TypeFilter accepts entries whose filing type matches one of the desired
// labels. An empty filter accepts everything.
type TypeFilter struct {
	desired []string
}

func NewTypeFilter(desired []string) *TypeFilter {
	f := &TypeFilter{}
	for _, d := range desired {
		if d = strings.TrimSpace(d); d != "" {
			f.desired = append(f.desired, fold(d))
		}
	}
	return f
}

// Run reports whether label passes the filter and, if not, why.
func (f *TypeFilter) Run(label *string) (bool, string) {
	if len(f.desired) == 0 {
		return true, ""
	}

	if label == nil {
		return false, "Excluded by type filter: filing type unknown"
	}

	detected := fold(*label)
	for _, d := range f.desired {
		if detected == d || strings.Contains(detected, d) {
			return true, ""
		}
	}

	return false, fmt.Sprintf("Excluded by type filter: '%s' is not one of %v", *label, f.desired)
}

func (f *TypeFilter) IsEmpty() bool {
	return len(f.desired) == 0
}

// fold case-folds s. A Caser is stateful, so one is made per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
