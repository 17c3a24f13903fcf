package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pensio/consultant-bot/internal/threadsafe"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// IdentityScope controls how the client caches bearer tokens
type IdentityScope int

const (
	// ScopeProcess keeps one shared token for the whole process, obtained
	// lazily with the configured service credentials
	ScopeProcess IdentityScope = iota

	// ScopePerUser keeps one token per external user identity. Tokens only
	// exist after an explicit Login call for that identity; requests without
	// a cached token are sent anonymously and rejected by the server.
	ScopePerUser
)

// ParseIdentityScope parses an identity scope configuration value
func ParseIdentityScope(value string) (IdentityScope, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "process", "single":
		return ScopeProcess, nil
	case "per_user", "per-user":
		return ScopePerUser, nil
	}
	return ScopeProcess, fmt.Errorf("invalid identity scope %q (expected 'process' or 'per_user')", value)
}

// Identity identifies the credential slot a request runs under.
// In ScopeProcess every identity maps to the same slot.
type Identity string

// ProcessIdentity is the identity of the shared process credential
const ProcessIdentity Identity = "process"

// authManager owns the bearer token cache.
// The backend's token endpoint implements the OAuth2 resource owner password
// grant (form-encoded username/password exchanged for an access token), so
// the exchange itself is delegated to golang.org/x/oauth2. Token expiry is
// not predicted; it is discovered reactively via a 401 on use.
type authManager struct {
	scope    IdentityScope
	username string
	password string

	exchange *oauth2.Config
	http     *http.Client

	// tokens holds at most one bearer token per identity
	tokens *threadsafe.Map[Identity, string]
}

func newAuthManager(baseURL string, scope IdentityScope, username, password string, httpClient *http.Client) *authManager {
	return &authManager{
		scope:    scope,
		username: username,
		password: password,
		exchange: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  baseURL + "/api/v1/auth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http:   httpClient,
		tokens: threadsafe.NewMap[Identity, string](),
	}
}

// Login exchanges the given credentials for a bearer token and caches it for
// the given identity.
// A credential rejection (non-2xx from the token endpoint) clears any
// previously cached token for the identity and returns an AuthError.
// A transport failure leaves the cached state untouched and returns a
// NetworkError.
func (manager *authManager) Login(ctx context.Context, identity Identity, username, password string) error {
	key := manager.key(identity)
	log.Debug().Str("identity", string(key)).Msg("logging in to the backend API")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, manager.http)
	token, err := manager.exchange.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			manager.tokens.Remove(key)
			log.Warn().Str("identity", string(key)).Int("status", retrieveErr.Response.StatusCode).Msg("the backend API rejected the login credentials")
			return &AuthError{
				StatusCode: retrieveErr.Response.StatusCode,
				Message:    strings.TrimSpace(string(retrieveErr.Body)),
			}
		}
		return &NetworkError{Op: http.MethodPost, URL: manager.exchange.Endpoint.TokenURL, Err: err}
	}

	manager.tokens.Set(key, token.AccessToken)
	log.Debug().Str("identity", string(key)).Msg("successfully logged in to the backend API")
	return nil
}

// Headers resolves the authorization header for the given identity.
// In ScopeProcess a missing token triggers exactly one lazy login with the
// configured service credentials. In ScopePerUser a missing token yields
// empty headers; rejection is deferred to the server because the client does
// not hold user passwords beyond the Login call.
func (manager *authManager) Headers(ctx context.Context, identity Identity) (http.Header, error) {
	key := manager.key(identity)

	token, ok := manager.tokens.Lookup(key)
	if !ok {
		if manager.scope == ScopePerUser {
			log.Debug().Str("identity", string(key)).Msg("no cached token for identity, sending request anonymously")
			return http.Header{}, nil
		}
		if err := manager.Login(ctx, identity, manager.username, manager.password); err != nil {
			return nil, err
		}
		token = manager.tokens.Get(key)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return header, nil
}

// Invalidate drops the cached token of the given identity
func (manager *authManager) Invalidate(identity Identity) {
	manager.tokens.Remove(manager.key(identity))
}

func (manager *authManager) key(identity Identity) Identity {
	if manager.scope == ScopeProcess {
		return ProcessIdentity
	}
	return identity
}

// Login authenticates the given identity against the backend and caches the
// obtained bearer token. In ScopeProcess the identity is ignored and the
// shared process slot is used.
func (client *Client) Login(ctx context.Context, identity Identity, username, password string) error {
	return client.auth.Login(ctx, identity, username, password)
}
