/*
classification.go - Hour classification registration and lookup

PURPOSE:
  Hours end up in named buckets (REGULAR, OVERTIME, VACATION, ...). Worked
  buckets come out of the overtime engine; leave buckets come from
  attendance classification codes. The registry lets the aggregation
  service and the stores turn codes back into known buckets.

HOW IT WORKS:
  1. The built-in buckets are registered on init()
  2. Deployments with extra leave codes call RegisterClassification
  3. ParseClassification maps any code to a bucket, OTHER when unknown

USAGE:
  c := generic.ParseClassification("sick")   // ClassSick
  c := generic.ParseClassification("jury")   // ClassOther

SEE ALSO:
  - ledger.go: SummaryLine carries a Classification
  - payroll/summary.go: Builds lines per classification
*/
package generic

import (
	"sort"
	"strings"
	"sync"
)

// Classification is an hour bucket code.
type Classification string

const (
	ClassRegular    Classification = "REGULAR"
	ClassOvertime   Classification = "OVERTIME"
	ClassDoubleTime Classification = "DOUBLETIME"
	ClassVacation   Classification = "VACATION"
	ClassHoliday    Classification = "HOLIDAY"
	ClassSick       Classification = "SICK"
	ClassPTO        Classification = "PTO"
	ClassOther      Classification = "OTHER"
)

// IsLeave reports whether the bucket is fed by attendance leave codes.
func (c Classification) IsLeave() bool {
	switch c {
	case ClassRegular, ClassOvertime, ClassDoubleTime:
		return false
	}
	return true
}

// =============================================================================
// CLASSIFICATION REGISTRY
// =============================================================================

var (
	classificationRegistry = make(map[string]Classification)
	registryMu             sync.RWMutex
)

func init() {
	for _, c := range []Classification{
		ClassRegular, ClassOvertime, ClassDoubleTime,
		ClassVacation, ClassHoliday, ClassSick, ClassPTO, ClassOther,
	} {
		RegisterClassification(c)
	}
}

// RegisterClassification adds a bucket to the global registry.
func RegisterClassification(c Classification) {
	registryMu.Lock()
	defer registryMu.Unlock()
	classificationRegistry[strings.ToUpper(string(c))] = c
}

// LookupClassification finds a registered bucket by code, case-insensitive.
func LookupClassification(code string) (Classification, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := classificationRegistry[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// ParseClassification resolves a code, falling back to ClassOther.
func ParseClassification(code string) Classification {
	if c, ok := LookupClassification(code); ok {
		return c
	}
	return ClassOther
}

// ListClassifications returns all registered buckets sorted by code.
func ListClassifications() []Classification {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Classification, 0, len(classificationRegistry))
	for _, c := range classificationRegistry {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
