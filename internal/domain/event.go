package domain

import "time"

// AccessEvent carries the raw request facts captured by the redirect
// handler into the asynchronous enrichment pipeline. Geo and client
// classification happen later, off the request path.
type AccessEvent struct {
	URLID      int64
	Code       string
	IPAddress  string
	UserAgent  *string
	Referer    *string
	AccessedAt time.Time
}
