package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pensio/consultant-bot/internal/config"
)

// Well-known task and case status values.
// A status outside the terminal set means the task is still being processed.
const (
	StatusProcessing          = "PROCESSING"
	StatusCompleted           = "COMPLETED"
	StatusFailed              = "FAILED"
	StatusErrorProcessing     = "ERROR_PROCESSING"
	StatusMeetsCriteria       = "MEETS CRITERIA"
	StatusDoesNotMeetCriteria = "DOES NOT MEET CRITERIA"
)

// DefaultTerminalStatuses contains the statuses after which polling stops.
// Terminal means 'no further polling needed', not 'the operation succeeded';
// negative adjudication outcomes are terminal too.
var DefaultTerminalStatuses = []string{
	StatusCompleted,
	StatusFailed,
	StatusErrorProcessing,
	StatusMeetsCriteria,
	StatusDoesNotMeetCriteria,
}

// Default polling parameters
const (
	DefaultTaskTimeout     = 5 * time.Minute
	DefaultMinPollInterval = 2 * time.Second
	DefaultMaxPollInterval = 10 * time.Second
	DefaultHTTPTimeout     = 2 * time.Minute
)

// Options configures a backend client
type Options struct {
	// BaseURL is the base URL of the backend API (without the /api/v1 prefix)
	BaseURL string

	// Scope selects how bearer tokens are cached (see IdentityScope)
	Scope IdentityScope

	// Username and Password are the process-level service credentials used
	// for lazy logins in ScopeProcess. Unused in ScopePerUser.
	Username string
	Password string

	HTTPTimeout     time.Duration
	TaskTimeout     time.Duration
	MinPollInterval time.Duration
	MaxPollInterval time.Duration

	// TerminalStatuses overrides DefaultTerminalStatuses if non-empty
	TerminalStatuses []string
}

// Client is the HTTP client for the pension consultant backend API.
// It owns the bearer token cache, performs exactly one re-authentication
// retry on stale-token failures and polls long-running tasks to a terminal
// status with capped multiplicative backoff.
//
// A Client is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL string
	http    *http.Client
	auth    *authManager

	taskTimeout time.Duration
	minInterval time.Duration
	maxInterval time.Duration
	terminal    map[string]struct{}

	// Time sources, overridable in tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new backend client
func New(opts Options) *Client {
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = DefaultHTTPTimeout
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}
	if opts.MinPollInterval <= 0 {
		opts.MinPollInterval = DefaultMinPollInterval
	}
	if opts.MaxPollInterval <= 0 {
		opts.MaxPollInterval = DefaultMaxPollInterval
	}
	if len(opts.TerminalStatuses) == 0 {
		opts.TerminalStatuses = DefaultTerminalStatuses
	}

	terminal := make(map[string]struct{}, len(opts.TerminalStatuses))
	for _, status := range opts.TerminalStatuses {
		terminal[status] = struct{}{}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	httpClient := &http.Client{Timeout: opts.HTTPTimeout}

	return &Client{
		baseURL:     baseURL,
		http:        httpClient,
		auth:        newAuthManager(baseURL, opts.Scope, opts.Username, opts.Password, httpClient),
		taskTimeout: opts.TaskTimeout,
		minInterval: opts.MinPollInterval,
		maxInterval: opts.MaxPollInterval,
		terminal:    terminal,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// NewFromConfig creates a new backend client out of the application configuration
func NewFromConfig(cfg *config.Config) (*Client, error) {
	scope, err := ParseIdentityScope(cfg.IdentityScope)
	if err != nil {
		return nil, err
	}
	return New(Options{
		BaseURL:         cfg.BackendBaseURL,
		Scope:           scope,
		Username:        cfg.BackendUsername,
		Password:        cfg.BackendPassword,
		HTTPTimeout:     cfg.HTTPTimeout,
		TaskTimeout:     cfg.TaskTimeout,
		MinPollInterval: cfg.PollMinInterval,
		MaxPollInterval: cfg.PollMaxInterval,
	}), nil
}

// Close releases the underlying transport resources.
// The client must not be used afterwards.
func (client *Client) Close() {
	client.http.CloseIdleConnections()
}

func (client *Client) isTerminal(status string) bool {
	_, ok := client.terminal[status]
	return ok
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
