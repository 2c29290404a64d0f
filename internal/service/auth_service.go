package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"t3chat-be/internal/dto"
	"t3chat-be/internal/entity"
	"t3chat-be/internal/pkg/serverutils"
	"t3chat-be/internal/repository/specification"
	"t3chat-be/internal/repository/unitofwork"
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userId uuid.UUID) (*dto.MeResponse, error)
	// IssueTokensFor mints a token pair for an already authenticated user.
	// The OAuth flow uses it after provider verification.
	IssueTokensFor(ctx context.Context, userId uuid.UUID) (*dto.LoginResponse, error)
}

type authService struct {
	uowFactory      unitofwork.RepositoryFactory
	jwtSecret       string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory, jwtSecret string, accessTTLMin, refreshTTLDay int) IAuthService {
	return &authService{
		uowFactory:      uowFactory,
		jwtSecret:       jwtSecret,
		accessTokenTTL:  time.Duration(accessTTLMin) * time.Minute,
		refreshTokenTTL: time.Duration(refreshTTLDay) * 24 * time.Hour,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.UserRepository().FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	user := &entity.User{
		Id:           uuid.New(),
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: &hashStr,
		CreatedAt:    time.Now(),
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, err
	}

	return &dto.RegisterResponse{Id: user.Id, Email: user.Email}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == nil {
		return nil, serverutils.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		return nil, serverutils.ErrUnauthorized
	}

	return s.issueTokens(ctx, uow, user.Id)
}

func (s *authService) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	stored, err := uow.UserRefreshTokenRepository().FindOne(ctx,
		specification.Filter("token_hash", hashToken(req.RefreshToken)),
	)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Revoked || stored.ExpiresAt.Before(time.Now()) {
		return nil, serverutils.ErrUnauthorized
	}

	// Rotate: the old token is single use.
	if err := uow.UserRefreshTokenRepository().Revoke(ctx, stored.Id); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, uow, stored.UserId)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	stored, err := uow.UserRefreshTokenRepository().FindOne(ctx,
		specification.Filter("token_hash", hashToken(refreshToken)),
	)
	if err != nil {
		return err
	}
	if stored == nil {
		return nil
	}
	return uow.UserRefreshTokenRepository().Revoke(ctx, stored.Id)
}

func (s *authService) Me(ctx context.Context, userId uuid.UUID) (*dto.MeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, serverutils.ErrNotFound
	}

	res := &dto.MeResponse{
		Id:       user.Id,
		Email:    user.Email,
		FullName: user.FullName,
	}
	if user.AvatarURL != nil {
		res.AvatarURL = *user.AvatarURL
	}
	return res, nil
}

func (s *authService) IssueTokensFor(ctx context.Context, userId uuid.UUID) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return s.issueTokens(ctx, uow, userId)
}

func (s *authService) issueTokens(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (*dto.LoginResponse, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userId.String(),
		"iat": now.Unix(),
		"exp": now.Add(s.accessTokenTTL).Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	err = uow.UserRefreshTokenRepository().Create(ctx, &entity.UserRefreshToken{
		Id:        uuid.New(),
		UserId:    userId,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: now.Add(s.refreshTokenTTL),
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTokenTTL.Seconds()),
	}, nil
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
