package dlock

import "time"

// Default option values.
const (
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultWait          = 50 * time.Millisecond
	DefaultRenewalPeriod = 3 * time.Second
)

// Config holds lock behavior options.
type Config struct {
	// PollInterval is the sleep between failed ACQUIRE attempts.
	PollInterval time.Duration
	// DefaultWait is used by TryLockDefault.
	DefaultWait time.Duration
	// RenewalEnabled starts a renewal task for every acquired lock.
	RenewalEnabled bool
	// RenewalPeriod is the base period: renewal ticks run every
	// RenewalPeriod/3, starting RenewalPeriod/3 after acquisition.
	// Zero derives the period from each lock's lease.
	RenewalPeriod time.Duration
	// KeyPrefix namespaces store keys as "<prefix>:<key>". Empty means none.
	KeyPrefix string
	// TokenStrategy selects how holder tokens are minted.
	TokenStrategy TokenStrategy
	// MachineID identifies this process for TokenMachine. Empty uses the
	// hostname.
	MachineID string
}

// DefaultConfig returns the default options.
func DefaultConfig() Config {
	return Config{
		PollInterval:   DefaultPollInterval,
		DefaultWait:    DefaultWait,
		RenewalEnabled: true,
		RenewalPeriod:  DefaultRenewalPeriod,
		TokenStrategy:  TokenUUID,
	}
}

// normalize fills zero values that would make the lock misbehave.
func (c Config) normalize() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.DefaultWait < 0 {
		c.DefaultWait = 0
	}
	if c.RenewalPeriod < 0 {
		c.RenewalPeriod = 0
	}
	if c.TokenStrategy == "" {
		c.TokenStrategy = TokenUUID
	}

	return c
}

// renewalInterval returns the tick interval for a lock held with lease.
func (c Config) renewalInterval(lease time.Duration) time.Duration {
	period := c.RenewalPeriod
	if period <= 0 {
		period = lease
	}
	interval := period / 3
	if interval < time.Millisecond {
		interval = time.Millisecond
	}

	return interval
}
