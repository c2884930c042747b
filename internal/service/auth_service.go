package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	config "github.com/maheshrc27/contentflow/configs"
	"github.com/maheshrc27/contentflow/internal/transfer"
	"github.com/maheshrc27/contentflow/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const (
	operatorRole = "operator"
	oauthRole    = "oauth-state"
	sessionTTL   = 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOAuthNotConfigured = errors.New("OAuth2 configuration is incomplete")
	ErrInvalidOAuthState  = errors.New("invalid oauth state")
)

type AuthService interface {
	Login(ctx context.Context, password string) (string, error)
	LinkedInAuthURL(ctx context.Context) (string, error)
	LinkedInCallback(ctx context.Context, code, state string) (*transfer.LinkedInToken, error)
}

type authService struct {
	cfg      config.Config
	linkedin *oauth2.Config
}

func NewAuthService(cfg config.Config) AuthService {
	return &authService{
		cfg: cfg,
		linkedin: &oauth2.Config{
			ClientID:     cfg.LinkedIn.ClientID,
			ClientSecret: cfg.LinkedIn.ClientSecret,
			RedirectURL:  cfg.LinkedIn.RedirectURI,
			Scopes:       []string{"openid", "profile", "w_member_social"},
			Endpoint:     linkedin.Endpoint,
		},
	}
}

// Login checks the operator password and returns a session token.
func (s *authService) Login(ctx context.Context, password string) (string, error) {
	if s.cfg.OperatorPassword == "" || s.cfg.SecretKey == "" {
		slog.Info("login attempted without OPERATOR_PASSWORD or SECRET_KEY")
		return "", ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.OperatorPassword)) != 1 {
		return "", ErrInvalidCredentials
	}
	return utils.GenerateToken(s.cfg.SecretKey, operatorRole, sessionTTL)
}

func (s *authService) LinkedInAuthURL(ctx context.Context) (string, error) {
	if s.linkedin.ClientID == "" || s.linkedin.ClientSecret == "" || s.linkedin.RedirectURL == "" {
		slog.Info(ErrOAuthNotConfigured.Error())
		return "", ErrOAuthNotConfigured
	}

	state, err := utils.GenerateToken(s.cfg.SecretKey, oauthRole, 10*time.Minute)
	if err != nil {
		return "", err
	}
	return s.linkedin.AuthCodeURL(state), nil
}

// LinkedInCallback exchanges the code for an access token. The operator
// stores it as LINKEDIN_ACCESS_TOKEN.
func (s *authService) LinkedInCallback(ctx context.Context, code, state string) (*transfer.LinkedInToken, error) {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return nil, err
	}

	claims, err := utils.ValidateToken(s.cfg.SecretKey, state)
	if err != nil || claims.Role != oauthRole {
		return nil, ErrInvalidOAuthState
	}

	token, err := s.linkedin.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	out := &transfer.LinkedInToken{AccessToken: token.AccessToken}
	if !token.Expiry.IsZero() {
		out.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}
	return out, nil
}
