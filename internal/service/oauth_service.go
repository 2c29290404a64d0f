package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"t3chat-be/internal/dto"
	"t3chat-be/internal/entity"
	"t3chat-be/internal/repository/unitofwork"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo?access_token="

type IOAuthService interface {
	GetLoginURL(provider string) (string, error)
	HandleCallback(ctx context.Context, provider, code string) (*dto.LoginResponse, error)
}

type oauthService struct {
	uowFactory  unitofwork.RepositoryFactory
	authService IAuthService
	googleConf  *oauth2.Config
}

func NewOAuthService(uowFactory unitofwork.RepositoryFactory, authService IAuthService, clientID, clientSecret, redirectURL string) IOAuthService {
	return &oauthService{
		uowFactory:  uowFactory,
		authService: authService,
		googleConf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

func (s *oauthService) GetLoginURL(provider string) (string, error) {
	if provider != "google" {
		return "", errors.New("unsupported provider")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)

	return s.googleConf.AuthCodeURL(state), nil
}

func (s *oauthService) HandleCallback(ctx context.Context, provider, code string) (*dto.LoginResponse, error) {
	if provider != "google" {
		return nil, errors.New("unsupported provider")
	}

	token, err := s.googleConf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	googleUser, err := fetchGoogleUser(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	userId, err := s.findOrCreateUser(ctx, googleUser)
	if err != nil {
		return nil, err
	}

	return s.authService.IssueTokensFor(ctx, userId)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func fetchGoogleUser(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL+accessToken, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var info googleUserInfo
	if err := json.Unmarshal(content, &info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, errors.New("provider returned no email")
	}
	return &info, nil
}

func (s *oauthService) findOrCreateUser(ctx context.Context, info *googleUserInfo) (uuid.UUID, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	link, err := uow.UserProviderRepository().FindByProvider(ctx, "google", info.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if link != nil {
		return link.UserId, nil
	}

	// No provider link yet. Attach to an existing account with the same
	// email, or create a new one.
	user, err := uow.UserRepository().FindByEmail(ctx, info.Email)
	if err != nil {
		return uuid.Nil, err
	}

	if err := uow.Begin(ctx); err != nil {
		return uuid.Nil, err
	}
	defer uow.Rollback()

	if user == nil {
		avatar := info.Picture
		user = &entity.User{
			Id:        uuid.New(),
			Email:     info.Email,
			FullName:  info.Name,
			AvatarURL: &avatar,
			CreatedAt: time.Now(),
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return uuid.Nil, err
		}
	}

	err = uow.UserProviderRepository().Create(ctx, &entity.UserProvider{
		Id:             uuid.New(),
		UserId:         user.Id,
		ProviderName:   "google",
		ProviderUserId: info.ID,
		AvatarURL:      info.Picture,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		return uuid.Nil, err
	}

	if err := uow.Commit(); err != nil {
		return uuid.Nil, err
	}
	return user.Id, nil
}
