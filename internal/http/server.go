// Package http exposes the expense sharing REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Anshbajaj69/Expense-Sharing/internal/auth"
	"github.com/Anshbajaj69/Expense-Sharing/internal/cache"
	"github.com/Anshbajaj69/Expense-Sharing/internal/middleware/authn"
	"github.com/Anshbajaj69/Expense-Sharing/internal/middleware/idempotency"
	"github.com/Anshbajaj69/Expense-Sharing/internal/middleware/ratelimit"
	"github.com/Anshbajaj69/Expense-Sharing/internal/middleware/security"
	"github.com/Anshbajaj69/Expense-Sharing/internal/middleware/trace"
	"github.com/Anshbajaj69/Expense-Sharing/internal/storage"
)

const (
	balanceCacheSize = 1000
	balanceCacheTTL  = 30 * time.Second
)

// ExportPublisher pushes a sync message for a freshly created expense.
type ExportPublisher interface {
	PublishExpenseSync(ctx context.Context, id string, version int64) error
}

// Options wires the server's collaborators.
type Options struct {
	Addr          string
	Store         storage.Store
	Authenticator *auth.PasswordAuthenticator
	Tokens        *auth.JWTManager
	TokenTTL      time.Duration

	// Publisher may be nil; expense creation then relies on the
	// worker's pending sweep alone.
	Publisher ExportPublisher

	// Redis enables idempotent expense creation when non-nil.
	Redis *redis.Client

	RateLimitPerMinute int
}

type Server struct {
	http.Server

	store     storage.Store
	users     *auth.PasswordAuthenticator
	tokens    *auth.JWTManager
	tokenTTL  time.Duration
	publisher ExportPublisher

	validate   *validator.Validate
	translator ut.Translator

	limiter  *ratelimit.Limiter
	balances *cache.BalanceCache

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	validate := validator.New()
	eng := en.New()
	uni := ut.New(eng, eng)
	translator, found := uni.GetTranslator("en")
	if !found {
		return nil, errors.New("english translator not found")
	}
	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		return nil, fmt.Errorf("failed to register validator translations: %w", err)
	}

	s := &Server{
		store:      opts.Store,
		users:      opts.Authenticator,
		tokens:     opts.Tokens,
		tokenTTL:   opts.TokenTTL,
		publisher:  opts.Publisher,
		validate:   validate,
		translator: translator,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		balances: cache.NewBalanceCache(balanceCacheSize, balanceCacheTTL),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/auth/signup", s.handleSignup)
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.Handle("/api/auth/users", s.protected(s.handleListUsers))

	addExpense := http.Handler(http.HandlerFunc(s.handleAddExpense))
	if opts.Redis != nil {
		addExpense = idempotency.Middleware(opts.Redis)(addExpense)
	}
	mux.Handle("/api/expense/add", s.protected(addExpense.ServeHTTP))
	mux.Handle("/api/expense/get", s.protected(s.handleGetExpenses))
	mux.Handle("/api/expense/balance-sheet", s.protected(s.handleBalanceSheet))
	mux.Handle("/api/expense/generate-balance-sheet", s.protected(s.handleGenerateBalanceSheet))

	traceMW := trace.NewMiddleware(security.ExtractClientIP)
	handler := traceMW.Middleware(
		security.Headers(security.DefaultHeadersConfig())(
			s.limiter.Middleware(security.ExtractClientIP, nil)(
				metricsMiddleware(mux))))

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// protected wraps a handler with JWT authentication.
func (s *Server) protected(next http.HandlerFunc) http.Handler {
	return authn.RequireAuth(s.tokens)(next)
}

// Shutdown stops the HTTP server and background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// setSessionCookie attaches the JWT as an HttpOnly cookie.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authn.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(s.tokenTTL),
	})
}
