package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/interceptors"
)

func TestIdentity(t *testing.T) {
	tests := []struct {
		name      string
		headers   map[string]string
		wantActor domain.Actor
		hasActor  bool
	}{
		{"vendor", map[string]string{HeaderActorKind: "vendor", HeaderActorID: "v-1"}, domain.Vendor("v-1"), true},
		{"admin", map[string]string{HeaderActorKind: "ADMIN", HeaderActorID: " ops "}, domain.Admin("ops"), true},
		{"system is refused", map[string]string{HeaderActorKind: "SYSTEM", HeaderActorID: "x"}, domain.Actor{}, false},
		{"missing id", map[string]string{HeaderActorKind: "ADMIN"}, domain.Actor{}, false},
		{"none", nil, domain.Actor{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderTenantID, "t1")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			var (
				actor  domain.Actor
				ok     bool
				tenant string
			)
			Identity(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				actor, ok = ActorFromContext(r.Context())
				tenant = TenantFromContext(r.Context())
			})).ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, "t1", tenant)
			assert.Equal(t, tt.hasActor, ok)
			assert.Equal(t, tt.wantActor, actor)
		})
	}
}

func TestAttachTracingMetadata(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set(HeaderIdempotencyKey, "cart-1")

	var requestID, key string
	h := middleware.RequestID(AttachTracingMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = interceptors.RequestIDFromContext(r.Context())
		key = interceptors.IdempotencyKeyFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, "cart-1", key)
}
