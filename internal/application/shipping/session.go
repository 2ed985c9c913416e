package shipping

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/prepflow/backend/internal/domain/shipping"
	"github.com/prepflow/backend/internal/infrastructure/spapi"
)

// SessionManager implements SessionProvider on top of the credential broker
// and the per-tenant integration record. Sessions are cached per tenant and
// rebuilt once either the delegated credentials or the bearer token nears
// expiry, so a cached session is never broader than its shortest-lived leg.
type SessionManager struct {
	broker       *spapi.Broker
	integrations shipping.IntegrationRepository

	mu       sync.Mutex
	sessions map[uuid.UUID]*spapi.Session
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(broker *spapi.Broker, integrations shipping.IntegrationRepository) *SessionManager {
	return &SessionManager{
		broker:       broker,
		integrations: integrations,
		sessions:     make(map[uuid.UUID]*spapi.Session),
	}
}

// Establish returns a ready session for the tenant, exchanging credentials
// as needed. Credential failures are fatal for the run and surfaced as a
// typed stage error.
func (m *SessionManager) Establish(ctx context.Context, tenantID uuid.UUID) (*spapi.Session, error) {
	m.mu.Lock()
	cached := m.sessions[tenantID]
	m.mu.Unlock()
	if cached != nil && !cached.Expired() {
		return cached, nil
	}

	integ, err := m.integrations.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, shipping.WrapStageError(shipping.CodeIntegrationMissing,
			"no marketplace integration is configured for this tenant", err)
	}

	creds, err := m.broker.AssumeRole(ctx)
	if err != nil {
		return nil, shipping.WrapStageError(shipping.CodeCredentialExchange,
			"failed to obtain delegated signing credentials", err)
	}
	token, err := m.broker.AccessToken(ctx, integ.RefreshToken)
	if err != nil {
		return nil, shipping.WrapStageError(shipping.CodeCredentialExchange,
			"failed to refresh the marketplace access token", err)
	}

	sess := &spapi.Session{
		Credentials: creds,
		AccessToken: token,
		SellerID:    integ.SellerID,
		Marketplace: integ.Marketplace,
	}
	m.mu.Lock()
	m.sessions[tenantID] = sess
	m.mu.Unlock()
	return sess, nil
}
