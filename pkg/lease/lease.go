package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/types"
	"github.com/redis/go-redis/v9"
)

const (
	leasePrefix = "corral:lease:"
	lockPrefix  = "corral:lock:"
)

// Manager provides owner-stamped, time-bounded exclusive leases on runs and
// the same primitive as a general-purpose lock on arbitrary keys.
type Manager interface {
	// AcquireLease atomically sets the lease for runID iff absent, stamping
	// nodeID as owner. Returns true exactly when the caller became owner.
	AcquireLease(ctx context.Context, runID, nodeID string, ttl time.Duration) (bool, error)

	// GetLease returns the current lease for runID, or nil if absent/expired.
	GetLease(ctx context.Context, runID string) (*types.Lease, error)

	// ExtendLease extends the expiry by additional iff nodeID owns the lease.
	ExtendLease(ctx context.Context, runID, nodeID string, additional time.Duration) (bool, error)

	// ReleaseLease deletes the lease iff nodeID owns it.
	ReleaseLease(ctx context.Context, runID, nodeID string) (bool, error)

	// AdminReleaseLease unconditionally deletes the lease. Reserved for the
	// control plane's reclaim path.
	AdminReleaseLease(ctx context.Context, runID string) (bool, error)

	// Generic advisory locks, same shape keyed by arbitrary string.
	AcquireLock(ctx context.Context, key, ownerID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, ownerID string) (bool, error)
	ExtendLock(ctx context.Context, key, ownerID string, additional time.Duration) (bool, error)
	IsLocked(ctx context.Context, key string) (bool, error)
}

// releaseScript deletes the key only when the recorded owner matches.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// extendScript adds ARGV[2] milliseconds to the remaining TTL only when the
// recorded owner matches and the key has not expired.
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	local ttl = redis.call("pttl", KEYS[1])
	if ttl < 0 then
		return 0
	end
	return redis.call("pexpire", KEYS[1], ttl + ARGV[2])
end
return 0
`)

// RedisManager implements Manager on a Redis key space. The lease store is
// the single source of truth for mutual exclusion: Acquire is SET NX PX,
// Release is compare-and-delete by owner, Extend is compare-and-extend by
// owner.
type RedisManager struct {
	client redis.UniversalClient
}

// NewRedisManager creates a lease manager on the given Redis client.
func NewRedisManager(client redis.UniversalClient) *RedisManager {
	return &RedisManager{client: client}
}

func (m *RedisManager) AcquireLease(ctx context.Context, runID, nodeID string, ttl time.Duration) (bool, error) {
	if err := validateLeaseArgs(runID, nodeID, ttl); err != nil {
		return false, err
	}
	ok, err := m.client.SetNX(ctx, leasePrefix+runID, nodeID, ttl).Result()
	if err != nil {
		return false, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("acquire lease %s: %w", runID, err))
	}
	return ok, nil
}

func (m *RedisManager) GetLease(ctx context.Context, runID string) (*types.Lease, error) {
	if runID == "" {
		return nil, errdefs.Validationf("run id must not be empty")
	}
	key := leasePrefix + runID
	owner, err := m.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("get lease %s: %w", runID, err))
	}
	ttl, err := m.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("get lease ttl %s: %w", runID, err))
	}
	if ttl < 0 {
		// Expired (or deleted) between the two calls.
		return nil, nil
	}
	return &types.Lease{
		RunID:     runID,
		NodeID:    owner,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (m *RedisManager) ExtendLease(ctx context.Context, runID, nodeID string, additional time.Duration) (bool, error) {
	if err := validateLeaseArgs(runID, nodeID, additional); err != nil {
		return false, err
	}
	return m.runOwnerScript(ctx, extendScript, leasePrefix+runID, nodeID, additional.Milliseconds())
}

func (m *RedisManager) ReleaseLease(ctx context.Context, runID, nodeID string) (bool, error) {
	if runID == "" || nodeID == "" {
		return false, errdefs.Validationf("run id and node id must not be empty")
	}
	return m.runOwnerScript(ctx, releaseScript, leasePrefix+runID, nodeID)
}

func (m *RedisManager) AdminReleaseLease(ctx context.Context, runID string) (bool, error) {
	if runID == "" {
		return false, errdefs.Validationf("run id must not be empty")
	}
	n, err := m.client.Del(ctx, leasePrefix+runID).Result()
	if err != nil {
		return false, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("admin release lease %s: %w", runID, err))
	}
	return n > 0, nil
}

func (m *RedisManager) AcquireLock(ctx context.Context, key, ownerID string, ttl time.Duration) (bool, error) {
	if err := validateLeaseArgs(key, ownerID, ttl); err != nil {
		return false, err
	}
	ok, err := m.client.SetNX(ctx, lockPrefix+key, ownerID, ttl).Result()
	if err != nil {
		return false, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("acquire lock %s: %w", key, err))
	}
	return ok, nil
}

func (m *RedisManager) ReleaseLock(ctx context.Context, key, ownerID string) (bool, error) {
	if key == "" || ownerID == "" {
		return false, errdefs.Validationf("lock key and owner id must not be empty")
	}
	return m.runOwnerScript(ctx, releaseScript, lockPrefix+key, ownerID)
}

func (m *RedisManager) ExtendLock(ctx context.Context, key, ownerID string, additional time.Duration) (bool, error) {
	if err := validateLeaseArgs(key, ownerID, additional); err != nil {
		return false, err
	}
	return m.runOwnerScript(ctx, extendScript, lockPrefix+key, ownerID, additional.Milliseconds())
}

func (m *RedisManager) IsLocked(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errdefs.Validationf("lock key must not be empty")
	}
	n, err := m.client.Exists(ctx, lockPrefix+key).Result()
	if err != nil {
		return false, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("check lock %s: %w", key, err))
	}
	return n > 0, nil
}

func (m *RedisManager) runOwnerScript(ctx context.Context, script *redis.Script, key, owner string, extra ...any) (bool, error) {
	args := append([]any{owner}, extra...)
	n, err := script.Run(ctx, m.client, []string{key}, args...).Int64()
	if err != nil {
		return false, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("lease script on %s: %w", key, err))
	}
	return n > 0, nil
}

func validateLeaseArgs(key, owner string, ttl time.Duration) error {
	if key == "" || owner == "" {
		return errdefs.Validationf("key and owner must not be empty")
	}
	if ttl <= 0 {
		return errdefs.Validationf("ttl must be positive, got %s", ttl)
	}
	return nil
}
