package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
)

// Headers set by the session layer in front of the service.
const (
	HeaderTenantID  = "X-Tenant-ID"
	HeaderActorKind = "X-Actor-Kind"
	HeaderActorID   = "X-Actor-ID"
)

type contextKey string

const (
	tenantKey contextKey = "tenant_id"
	actorKey  contextKey = "actor"
)

// Identity copies the tenant and acting identity headers onto the context.
// Authentication happens upstream; absent headers leave the values empty.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if tenant := strings.TrimSpace(r.Header.Get(HeaderTenantID)); tenant != "" {
			ctx = context.WithValue(ctx, tenantKey, tenant)
		}
		kind := domain.ActorKind(strings.ToUpper(strings.TrimSpace(r.Header.Get(HeaderActorKind))))
		id := strings.TrimSpace(r.Header.Get(HeaderActorID))
		switch kind {
		case domain.ActorVendor, domain.ActorAdmin, domain.ActorCustomer:
			if id != "" {
				ctx = context.WithValue(ctx, actorKey, domain.Actor{Kind: kind, ID: id})
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TenantFromContext(ctx context.Context) string {
	tenant, _ := ctx.Value(tenantKey).(string)
	return tenant
}

// ActorFromContext returns the acting identity and whether one was supplied.
// The SYSTEM kind is never accepted from a request.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}
