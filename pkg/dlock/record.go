package dlock

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the ownership record stored under a lock key.
type Record struct {
	// Token identifies the holder.
	Token string
	// Count is the reentrancy depth, always >= 1 while the record exists.
	Count int
	// ExpireAt is the store-clock time (unix ms) at which the lease ends.
	// Advisory only: the key's TTL is authoritative.
	ExpireAt int64
}

// ExpiresAt returns ExpireAt as a time.Time.
func (r *Record) ExpiresAt() time.Time {
	return time.UnixMilli(r.ExpireAt)
}

// wireRecord mirrors the JSON layout the Lua scripts read and write through
// cjson. Numbers are decoded as float64 because cjson encodes every number as
// a Lua double.
type wireRecord struct {
	Token    string  `json:"token"`
	Count    float64 `json:"count"`
	ExpireAt float64 `json:"expireAt,omitempty"`
}

// encodeCandidate builds the candidate record passed to ACQUIRE. The script
// fills in count and expireAt itself.
func encodeCandidate(token string) (string, error) {
	b, err := json.Marshal(wireRecord{Token: token, Count: 1})
	if err != nil {
		return "", fmt.Errorf("encoding candidate record: %w", err)
	}

	return string(b), nil
}

// decodeRecord parses a stored record.
func decodeRecord(raw string) (*Record, error) {
	var w wireRecord
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if w.Token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrMalformedRecord)
	}

	return &Record{
		Token:    w.Token,
		Count:    int(w.Count),
		ExpireAt: int64(w.ExpireAt),
	}, nil
}
