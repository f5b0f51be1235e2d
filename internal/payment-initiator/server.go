// Package paymentinitiator is an in-memory stand-in for the payment gateway,
// used for local development. Initiation is idempotent per order number.
package paymentinitiator

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/multivendor-orders/internal/pkg/cache"
	"github.com/jcmexdev/multivendor-orders/internal/pkg/paymentrpc"
)

var _ paymentrpc.InitiatorServer = (*Server)(nil)

type payment struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
}

type Server struct {
	mu       sync.Mutex
	payments map[string]payment

	authorizationBase string
	logger            *slog.Logger
	cache             cache.Cache
	cacheTTL          time.Duration
}

type Option func(*Server)

// WithCache mirrors initiations into c so they survive a restart.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Server) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func NewServer(authorizationBase string, opts ...Option) *Server {
	s := &Server{
		payments:          make(map[string]payment),
		authorizationBase: strings.TrimRight(authorizationBase, "/"),
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Initiate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := paymentrpc.RequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.payments[req.OrderNumber]
	if !found {
		p, found = s.fromCache(ctx, req.OrderNumber)
	}
	if found {
		if p.Amount != req.Amount || p.Currency != req.Currency {
			return nil, status.Errorf(codes.FailedPrecondition,
				"order %s was initiated for %d %s", req.OrderNumber, p.Amount, p.Currency)
		}
		s.logger.InfoContext(ctx, "payment initiation replayed",
			slog.String("order_number", req.OrderNumber),
			slog.String("reference", p.Reference))
		s.payments[req.OrderNumber] = p
		return paymentrpc.InitiateResponse{Reference: p.Reference, AuthorizationURL: p.AuthorizationURL}.ToStruct()
	}

	reference := "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16]
	p = payment{
		Reference:        reference,
		AuthorizationURL: s.authorizationBase + "/" + reference,
		Amount:           req.Amount,
		Currency:         req.Currency,
	}
	s.payments[req.OrderNumber] = p
	s.toCache(ctx, req.OrderNumber, p)

	s.logger.InfoContext(ctx, "payment initiated",
		slog.String("order_number", req.OrderNumber),
		slog.String("order_id", req.OrderID),
		slog.Int64("amount", req.Amount),
		slog.String("currency", req.Currency),
		slog.String("reference", reference))

	return paymentrpc.InitiateResponse{Reference: p.Reference, AuthorizationURL: p.AuthorizationURL}.ToStruct()
}

// Initiations reports how many distinct orders have been initiated.
func (s *Server) Initiations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *Server) fromCache(ctx context.Context, orderNumber string) (payment, bool) {
	if s.cache == nil {
		return payment{}, false
	}
	raw, err := s.cache.Get(ctx, s.cache.GenerateKey("initiate", orderNumber))
	if err != nil {
		s.logger.WarnContext(ctx, "payment cache read failed", slog.Any("error", err))
		return payment{}, false
	}
	if raw == "" {
		return payment{}, false
	}
	var p payment
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return payment{}, false
	}
	return p, true
}

func (s *Server) toCache(ctx context.Context, orderNumber string, p payment) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.GenerateKey("initiate", orderNumber), string(raw), s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "payment cache write failed", slog.Any("error", err))
	}
}
