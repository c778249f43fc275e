// Package reconcile merges partial metadata updates into the authoritative
// remote record without clobbering untouched fields.
package reconcile

import (
	"fmt"
	"strconv"

	"github.com/vidstore/stream-ingestion-go/internal/asset"
)

// Counter names that may be incremented. There is no decrement operation.
var counterNames = map[string]bool{
	asset.KeyViews:    true,
	asset.KeyLikes:    true,
	asset.KeyDislikes: true,
}

// Merge shallow-merges partial over current and returns a new map. Keys are
// only added or overwritten, never deleted; neither input is mutated.
//
// Merging disjoint updates commutes, so two editors touching different
// fields cannot clobber each other. Two editors touching the same field are
// last-write-wins at the field level; that window is accepted (there is no
// locking layer in front of the remote record).
func Merge(current, partial map[string]string) map[string]string {
	merged := make(map[string]string, len(current)+len(partial))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}

// IncrementCounter reads the named counter from current, adds one and
// returns the partial update to write back. A missing or malformed value
// counts as zero. Read-add-write is not atomic: concurrent increments from
// the same snapshot lose updates, which is the documented behavior.
func IncrementCounter(current map[string]string, name string) (map[string]string, error) {
	if !counterNames[name] {
		return nil, fmt.Errorf("unknown counter %q", name)
	}

	n, err := strconv.ParseInt(current[name], 10, 64)
	if err != nil || n < 0 {
		n = 0
	}

	return map[string]string{name: strconv.FormatInt(n+1, 10)}, nil
}

// IsCounter reports whether name is a recognized counter field.
func IsCounter(name string) bool {
	return counterNames[name]
}
