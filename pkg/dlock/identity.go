package dlock

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
)

// TokenStrategy selects how holder tokens are derived.
type TokenStrategy string

const (
	// TokenUUID mints a random UUID per caller scope.
	TokenUUID TokenStrategy = "uuid"
	// TokenMachine mints "[machineID]-[pid-seq]" tokens, readable in the
	// store and traceable to the process that holds the lock.
	TokenMachine TokenStrategy = "machine"
)

type tokenKey struct{}

// WithToken returns a context carrying an explicit holder token. Locks
// produced from it use that token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the holder token carried by ctx, if any.
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	if !ok || token == "" {
		return "", false
	}

	return token, true
}

type tokenSource struct {
	strategy  TokenStrategy
	machineID string
	pid       int
	seq       atomic.Uint64
}

func newTokenSource(strategy TokenStrategy, machineID string) *tokenSource {
	if machineID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "unknown"
		}
		machineID = host
	}

	return &tokenSource{
		strategy:  strategy,
		machineID: machineID,
		pid:       os.Getpid(),
	}
}

func (s *tokenSource) next() string {
	if s.strategy == TokenMachine {
		return fmt.Sprintf("[%s]-[%d-%d]", s.machineID, s.pid, s.seq.Add(1))
	}

	return uuid.NewString()
}
