package realtime

import "fmt"

// SyncError reports that a change-feed subscription failed to establish
// or was forcibly closed. It is never fatal: callers fall back to full
// refetches and surface only a "not live" indicator.
type SyncError struct {
	Topic string
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed for topic %q: %v", e.Topic, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
