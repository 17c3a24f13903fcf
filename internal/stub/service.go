// Package stub implements a development stand-in for the pension consultant
// backend API. It serves the same contract the production backend exposes
// (password token exchange, document extraction tasks, case adjudication,
// history) with simulated asynchronous processing: submitted tasks stay in
// PROCESSING for a configurable number of polls before reaching a terminal
// status.
package stub

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-memdb"
	"github.com/pensio/consultant-bot/internal/config"
	"github.com/pensio/consultant-bot/internal/task"
	"github.com/pensio/consultant-bot/internal/threadsafe"
	"github.com/rs/zerolog/log"
)

// DefaultCompleteAfterPolls is how many status polls a simulated task stays
// in PROCESSING before reaching its terminal status
const DefaultCompleteAfterPolls = 2

// DefaultTokenLifetime is how long an issued bearer token stays valid.
// Expiring tokens lets the stub exercise the client's re-authentication path.
const DefaultTokenLifetime = time.Hour

// Service represents the stub backend service
type Service struct {
	Config *config.Config

	// CompleteAfterPolls overrides DefaultCompleteAfterPolls if positive
	CompleteAfterPolls int

	// TokenLifetime overrides DefaultTokenLifetime if positive
	TokenLifetime time.Duration

	server *http.Server
	db     *memdb.MemDB
	writer *writer

	// tokens maps issued bearer tokens to their issuance time
	tokens  *threadsafe.Map[string, time.Time]
	sweeper *task.RepeatingTask

	caseSeq int64
}

// New creates a new stub backend service
func New(cfg *config.Config) (*Service, error) {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &Service{
		Config: cfg,
		db:     db,
		writer: &writer{},
		tokens: threadsafe.NewMap[string, time.Time](),
	}, nil
}

// Handler builds the HTTP handler of the stub backend.
// It is exposed separately from Startup so that tests can mount the stub on
// an httptest server.
func (service *Service) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RedirectSlashes)

	router.NotFound(func(rw http.ResponseWriter, _ *http.Request) {
		service.writer.WriteError(rw, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed(func(rw http.ResponseWriter, _ *http.Request) {
		service.writer.WriteError(rw, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Post("/api/v1/auth/token", service.endpointToken)
	router.Get("/api/v1/pension_types", service.middlewareAuth(service.endpointPensionTypes))
	router.Get("/api/v1/pension_documents/{typeID}", service.middlewareAuth(service.endpointPensionDocuments))
	router.Post("/api/v1/document_extractions", service.middlewareAuth(service.endpointCreateExtraction))
	router.Get("/api/v1/document_extractions/{taskID}", service.middlewareAuth(service.endpointExtractionStatus))
	router.Post("/api/v1/cases", service.middlewareAuth(service.endpointCreateCase))
	router.Get("/api/v1/cases/{caseID}/status", service.middlewareAuth(service.endpointCaseStatus))
	router.Get("/api/v1/cases/history", service.middlewareAuth(service.endpointCaseHistory))

	return router
}

// Startup starts up the stub backend and schedules the token sweeper.
// It blocks until the server terminates.
func (service *Service) Startup() error {
	service.sweeper = task.NewRepeating(func() {
		if n := service.sweepTokens(); n > 0 {
			log.Info().Int("amount", n).Msg("expired stub bearer tokens")
		}
	}, time.Minute)
	service.sweeper.Start()

	service.server = &http.Server{
		Addr:    service.Config.StubListenAddress,
		Handler: service.Handler(),
	}
	return service.server.ListenAndServe()
}

// Shutdown shuts down the stub backend
func (service *Service) Shutdown() {
	if service.sweeper != nil {
		service.sweeper.Stop(false)
		service.sweeper = nil
	}
	if service.server != nil {
		service.server.Shutdown(context.Background())
		service.server = nil
	}
}

// RevokeTokens invalidates all issued bearer tokens.
// Tests use this to force the stale-token path on the client.
func (service *Service) RevokeTokens() {
	service.tokens.Reset()
}

func (service *Service) tokenLifetime() time.Duration {
	if service.TokenLifetime > 0 {
		return service.TokenLifetime
	}
	return DefaultTokenLifetime
}

func (service *Service) completeAfterPolls() int {
	if service.CompleteAfterPolls > 0 {
		return service.CompleteAfterPolls
	}
	return DefaultCompleteAfterPolls
}

// sweepTokens drops all expired bearer tokens and returns how many were dropped
func (service *Service) sweepTokens() int {
	lifetime := service.tokenLifetime()
	swept := 0
	service.tokens.Lock()
	tokens := service.tokens.GetUnderlyingMap()
	for token, issued := range tokens {
		if time.Since(issued) > lifetime {
			delete(tokens, token)
			swept++
		}
	}
	service.tokens.Unlock()
	return swept
}

// middlewareAuth makes sure that the requesting client has provided a valid,
// unexpired bearer token
func (service *Service) middlewareAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, request *http.Request) {
		header := request.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			service.writer.WriteError(rw, http.StatusUnauthorized, "not authenticated")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		issued, ok := service.tokens.Lookup(token)
		if !ok || time.Since(issued) > service.tokenLifetime() {
			service.writer.WriteError(rw, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next(rw, request)
	}
}
