package usecase

import (
	"context"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// 会員登録とログイン。
type AuthUsecase struct {
	users     repo.UserRepository
	secret    []byte
	accessTTL time.Duration
}

func NewAuthUsecase(users repo.UserRepository, secret string) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		secret:    []byte(secret),
		accessTTL: 15 * time.Minute,
	}
}

type TokenOutput struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type UserOutput struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Register はユーザーを新規作成する。emailの重複は409。
func (u *AuthUsecase) Register(ctx context.Context, in validator.RegisterInput) (UserOutput, error) {
	if err := validator.ValidateRegister(in); err != nil {
		return UserOutput{}, NewHTTPError(http.StatusBadRequest, "invalid input")
	}

	existing, err := u.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if existing != nil {
		return UserOutput{}, NewHTTPError(http.StatusConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "failed to hash password")
	}

	user := &model.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Address:      in.Address,
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		log.Error().Err(err).Msg("failed to create user")
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return UserOutput{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	}, nil
}

// Login はパスワードを検証してアクセストークンを発行する。
// 失敗理由は漏らさず、すべて同じ401にする。
func (u *AuthUsecase) Login(ctx context.Context, in validator.LoginInput) (TokenOutput, error) {
	if err := validator.ValidateLogin(in); err != nil {
		return TokenOutput{}, NewHTTPError(http.StatusBadRequest, "invalid input")
	}

	user, err := u.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return TokenOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil || !user.IsActive {
		return TokenOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return TokenOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	now := time.Now()
	expiresAt := now.Add(u.accessTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString(u.secret)
	if err != nil {
		return TokenOutput{}, NewHTTPError(http.StatusInternalServerError, "failed to sign token")
	}

	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		// ログイン自体は成功させる
		log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to record last login")
	}

	return TokenOutput{AccessToken: signed, ExpiresAt: expiresAt}, nil
}
