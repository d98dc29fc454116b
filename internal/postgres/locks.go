package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spahub/billing/internal/types"
)

// LockKey acquires an advisory lock for the given request. The lock is
// released automatically on commit or rollback, so it must be called inside
// a WithTx transaction. A zero or negative timeout means fail-fast.
func (c *Client) LockKey(ctx context.Context, req types.LockRequest) error {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("LockKey must be called inside a transaction")
	}

	timeout := req.GetTimeout()
	if timeout <= 0 {
		ok, err := c.TryLockKey(ctx, req.Key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("lock %q already held", req.Key)
		}
		return nil
	}

	// lock_timeout is reset when the transaction ends
	if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = %d", timeout.Milliseconds())).Error; err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}

	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", req.Key).Error; err != nil {
		if isLockTimeoutError(err) {
			return fmt.Errorf("failed to acquire lock %q within %v: %w", req.Key, timeout, err)
		}
		return fmt.Errorf("failed to acquire lock %q: %w", req.Key, err)
	}

	return nil
}

// TryLockKey attempts the advisory lock without waiting. Returns ok=false if
// another session holds it. Must be called inside a transaction.
func (c *Client) TryLockKey(ctx context.Context, key string) (bool, error) {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return false, fmt.Errorf("TryLockKey must be called inside a transaction")
	}

	var ok bool
	if err := tx.Raw("SELECT pg_try_advisory_xact_lock(hashtext(?))", key).Scan(&ok).Error; err != nil {
		return false, err
	}
	return ok, nil
}

// isLockTimeoutError detects postgres error 55P03 (lock not available)
func isLockTimeoutError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "55P03"
	}
	return false
}
