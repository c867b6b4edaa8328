package auth

import "context"

// Credentials are the tokens returned by the authorization server.
type Credentials struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    float64 `json:"expires_in"`
	RefreshToken *string `json:"refresh_token,omitempty"`
	UserID       *string `json:"user_id,omitempty"`
}

// IsUserCredential reports whether the credentials belong to a signed in user.
func (c Credentials) IsUserCredential() bool {
	return c.UserID != nil
}

// Bearer returns the Authorization header value.
func (c Credentials) Bearer() string {
	return "Bearer " + c.AccessToken
}

const GrantClientCredentials = "client_credentials"

// ClientCredentials identify the application in a client_credentials grant.
type ClientCredentials struct {
	ClientSecret string `json:"client_secret"`
	ClientID     string `json:"client_id"`
	GrantType    string `json:"grant_type"`
}

func NewClientCredentials(clientID, clientSecret string) ClientCredentials {
	return ClientCredentials{ClientID: clientID, ClientSecret: clientSecret, GrantType: GrantClientCredentials}
}

// Provider hands out the current credentials.
type Provider interface {
	ProvideCredentials() *Credentials
	SetCredentials(c Credentials)
}

// Fetcher obtains replacement credentials. A nil result with a nil error
// means refreshing is not supported.
type Fetcher interface {
	FetchNewCredentials(ctx context.Context) (*Credentials, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (*Credentials, error)

func (f FetcherFunc) FetchNewCredentials(ctx context.Context) (*Credentials, error) {
	return f(ctx)
}

// Store is the credential capability the dispatcher consumes. Every method
// must be safe for concurrent use.
type Store interface {
	Provider
	Fetcher
}
