// Package dedupe filters replayed Matrix events.
//
// A Window records the IDs of events that were already handled. Expired
// records are pruned lazily on every call, so there is no background
// goroutine to stop.
package dedupe
