package domain

import "time"

// JobLock is a named, TTL-bounded mutex persisted in shared storage. It serializes
// scheduled maintenance (deposit-match sweep, queue reaping) across worker processes.
// A row whose ExpiresAt is in the past counts as not held, regardless of presence;
// a crashed holder therefore self-expires without supervision.
type JobLock struct {
	Name        string    `json:"name"`
	OwnerID     string    `json:"ownerID"`
	AcquiredAt  time.Time `json:"acquiredAt"`
	HeartbeatAt time.Time `json:"heartbeatAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Live reports whether the lock is still held at instant now.
func (l JobLock) Live(now time.Time) bool {
	return l.ExpiresAt.After(now)
}
