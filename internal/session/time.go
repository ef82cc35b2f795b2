package session

import "time"

// timeNow is a package-level var to allow test injection.
var timeNow = time.Now

// Now returns the current UTC time in RFC3339, the timestamp format used
// across all persisted records.
func Now() string {
	return timeNow().UTC().Format(time.RFC3339)
}
