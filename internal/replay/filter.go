package replay

import (
	"slices"
	"strings"
	"time"

	"github.com/SmitUplenchwar2687/Tollgate/internal/recorder"
)

// Filter defines criteria for selecting traffic records during replay.
type Filter struct {
	Keys        []string  // Only include these keys (empty = all)
	KeyPrefixes []string  // Only include keys with one of these prefixes (empty = all)
	Routes      []string  // Only include these routes (empty = all)
	After       time.Time // Only include records after this time (zero = no limit)
	Before      time.Time // Only include records before this time (zero = no limit)
}

// Match returns true if the record passes the filter.
func (f *Filter) Match(r recorder.TrafficRecord) bool {
	if f == nil {
		return true
	}
	if len(f.Keys) > 0 && !slices.Contains(f.Keys, r.Key) {
		return false
	}
	if len(f.KeyPrefixes) > 0 && !hasAnyPrefix(r.Key, f.KeyPrefixes) {
		return false
	}
	if len(f.Routes) > 0 && !slices.Contains(f.Routes, r.Route) {
		return false
	}
	if !f.After.IsZero() && !r.Timestamp.After(f.After) {
		return false
	}
	if !f.Before.IsZero() && !r.Timestamp.Before(f.Before) {
		return false
	}
	return true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
