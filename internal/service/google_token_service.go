package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/config"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/repository"
	pkglogger "github.com/rankreport/rankreport-backend/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/searchconsole/v1"
)

// DefaultGoogleScopes are the read-only scopes needed for report data
var DefaultGoogleScopes = []string{
	searchconsole.WebmastersReadonlyScope,
	analyticsdata.AnalyticsReadonlyScope,
}

// GoogleTokenService hands out token sources for a client's stored Google grant.
// Refreshed tokens are written back to the client row.
type GoogleTokenService struct {
	oauth      *oauth2.Config
	clientRepo repository.ClientRepository
}

// NewGoogleTokenService creates a new GoogleTokenService
func NewGoogleTokenService(cfg config.GoogleConfig, clientRepo repository.ClientRepository) *GoogleTokenService {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultGoogleScopes
	}
	return &GoogleTokenService{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		clientRepo: clientRepo,
	}
}

// TokenSource returns a source that refreshes the client's grant on demand
func (s *GoogleTokenService) TokenSource(ctx context.Context, client *domain.Client) (oauth2.TokenSource, error) {
	if client.GoogleRefreshToken == "" {
		return nil, common.ErrGoogleNotConnected
	}

	initial := &oauth2.Token{
		AccessToken:  client.GoogleAccessToken,
		RefreshToken: client.GoogleRefreshToken,
		TokenType:    "Bearer",
	}
	if client.GoogleTokenExpiry != nil {
		initial.Expiry = *client.GoogleTokenExpiry
	}

	return &persistingTokenSource{
		ctx:      ctx,
		base:     s.oauth.TokenSource(ctx, initial),
		clientID: client.ID,
		repo:     s.clientRepo,
		last:     initial.AccessToken,
	}, nil
}

type persistingTokenSource struct {
	ctx      context.Context
	base     oauth2.TokenSource
	clientID string
	repo     repository.ClientRepository

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh google token: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}
	p.last = tok.AccessToken

	// Google omits the refresh token on refresh; the repository keeps the stored one
	if err := p.repo.UpdateGoogleToken(p.ctx, p.clientID, tok.AccessToken, tok.RefreshToken, tok.Expiry); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("client_id", p.clientID).Msg("failed to persist refreshed google token")
	}
	return tok, nil
}
