package shipping

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/prepflow/backend/internal/infrastructure/spapi"
)

// SessionProvider establishes the per-run marketplace session (delegated
// signing credentials plus the tenant's bearer token).
type SessionProvider interface {
	Establish(ctx context.Context, tenantID uuid.UUID) (*spapi.Session, error)
}

// OperationPoller waits on remote long-running operations. Satisfied by
// *spapi.Poller.
type OperationPoller interface {
	PollOperation(ctx context.Context, sess *spapi.Session, operationID string) (spapi.PollResult, error)
}

// ThrottleStore records a plan's rate-limit cooldown so re-invocations
// inside the window short-circuit without burning a remote call.
type ThrottleStore interface {
	Cooldown(ctx context.Context, planID string) (time.Duration, bool, error)
	SetCooldown(ctx context.Context, planID string, d time.Duration) error
}

// AuditStore archives the exact submitted payload for dispute resolution.
// Best-effort: callers degrade failures to warnings.
type AuditStore interface {
	PutSubmissionRecord(ctx context.Context, tenantID, requestID uuid.UUID, doc []byte) (string, error)
}
