// Package dlock provides a reentrant, lease-based distributed lock coordinated
// through Redis.
//
// Ownership lives in a single JSON record stored under the lock key:
//
//	{"token":"<holder>","count":<reentrancy depth>,"expireAt":<store clock ms>}
//
// Every decision that reads and then writes the record (acquire, release,
// renew) runs as one Lua script, so concurrent holders in different processes
// never observe a partial check-then-act. The record's Redis TTL is the
// authoritative lease.
//
// While a Lock is held, a renewal task re-arms the TTL every RenewalPeriod/3
// so long critical sections keep ownership. If the record disappears or is
// taken by another holder, the task stops and IsLocked reports false.
//
// Typical usage:
//
//	factory := dlock.NewFactory(client, dlock.DefaultConfig(), logger)
//	ctx = factory.Scope(ctx)
//
//	err := dlock.Run(ctx, factory, "job-42", time.Second, 30*time.Second,
//	    func(ctx context.Context) error {
//	        // protected work
//	        return nil
//	    })
//	if errors.Is(err, dlock.ErrTimeout) {
//	    // someone else holds the lock
//	}
package dlock
