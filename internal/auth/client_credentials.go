package auth

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/netkit/internal/codec"
	"github.com/GriffinCanCode/netkit/internal/query"
	"github.com/GriffinCanCode/netkit/internal/transport"
)

const formContentType = "application/x-www-form-urlencoded; charset=utf-8"

// ClientCredentialsFetcher requests new tokens with a client_credentials
// grant, posting the client credentials as a form to TokenURL.
type ClientCredentialsFetcher struct {
	HTTP        transport.HTTP
	TokenURL    string
	Credentials ClientCredentials
	Logger      *zap.Logger

	codec *codec.Codec
}

func NewClientCredentialsFetcher(h transport.HTTP, tokenURL string, creds ClientCredentials, logger *zap.Logger) *ClientCredentialsFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if creds.GrantType == "" {
		creds.GrantType = GrantClientCredentials
	}
	return &ClientCredentialsFetcher{
		HTTP:        h,
		TokenURL:    tokenURL,
		Credentials: creds,
		Logger:      logger,
		codec:       codec.New(),
	}
}

func (f *ClientCredentialsFetcher) FetchNewCredentials(ctx context.Context) (*Credentials, error) {
	pairs, err := query.FromModel(f.codec, f.Credentials)
	if err != nil {
		return nil, fmt.Errorf("auth: encode client credentials: %w", err)
	}

	resp, err := f.HTTP.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		URL:    f.TokenURL,
		Header: http.Header{
			"Content-Type": {formContentType},
			"Accept":       {"application/json"},
		},
		Body: []byte(pairs.Encode()),
	})
	if err != nil {
		return nil, fmt.Errorf("auth: token request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.Logger.Warn("Token request rejected",
			zap.String("url", f.TokenURL),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("auth: token request returned status %d", resp.StatusCode)
	}

	var creds Credentials
	if err := f.codec.Unmarshal(resp.Body, &creds); err != nil {
		return nil, fmt.Errorf("auth: decode token response: %w", err)
	}
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("auth: token response has no access_token")
	}

	f.Logger.Debug("Fetched new credentials", zap.String("token_type", creds.TokenType))
	return &creds, nil
}
