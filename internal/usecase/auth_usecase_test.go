package usecase

import (
	"context"
	"testing"

	"app/internal/domain/model"
	"app/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func TestAuthUsecase_Register_Success(t *testing.T) {
	ctx := context.Background()
	users := new(UserRepoMock)
	uc := NewAuthUsecase(users, "test-secret")

	users.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, nil)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		// 平文は保存しない
		return u.Email == "alice@example.com" &&
			u.PasswordHash != "password123" &&
			u.Role == model.RoleUser &&
			u.IsActive
	})).Return(nil)

	out, err := uc.Register(ctx, validator.RegisterInput{
		Email:    "alice@example.com",
		Password: "password123",
		Name:     "Alice",
	})
	assert.NoError(t, err)
	assert.Equal(t, "alice@example.com", out.Email)
	assert.Equal(t, "USER", out.Role)
	users.AssertExpectations(t)
}

func TestAuthUsecase_Register_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	users := new(UserRepoMock)
	uc := NewAuthUsecase(users, "test-secret")

	users.On("FindByEmail", mock.Anything, "alice@example.com").
		Return(&model.User{ID: 1, Email: "alice@example.com"}, nil)

	_, err := uc.Register(ctx, validator.RegisterInput{
		Email:    "alice@example.com",
		Password: "password123",
		Name:     "Alice",
	})
	assertErrContains(t, err, "email already registered")
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Register_InvalidInput(t *testing.T) {
	ctx := context.Background()
	uc := NewAuthUsecase(new(UserRepoMock), "test-secret")

	_, err := uc.Register(ctx, validator.RegisterInput{
		Email:    "not-an-email",
		Password: "password123",
		Name:     "Alice",
	})
	assertErrContains(t, err, "invalid input")

	_, err = uc.Register(ctx, validator.RegisterInput{
		Email:    "alice@example.com",
		Password: "short",
		Name:     "Alice",
	})
	assertErrContains(t, err, "invalid input")
}

func TestAuthUsecase_Login_Success(t *testing.T) {
	ctx := context.Background()
	users := new(UserRepoMock)
	uc := NewAuthUsecase(users, "test-secret")

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &model.User{ID: 1, Email: "alice@example.com", PasswordHash: string(hash), Role: model.RoleUser, IsActive: true}

	users.On("FindByEmail", mock.Anything, "alice@example.com").Return(user, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.LastLoginAt != nil
	})).Return(nil)

	out, err := uc.Login(ctx, validator.LoginInput{Email: "alice@example.com", Password: "password123"})
	assert.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)

	// 発行したトークンの中身を確認
	token, err := jwt.Parse(out.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	assert.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	if assert.True(t, ok) {
		assert.Equal(t, float64(1), claims["sub"])
		assert.Equal(t, "USER", claims["role"])
	}
}

func TestAuthUsecase_Login_WrongPassword(t *testing.T) {
	ctx := context.Background()
	users := new(UserRepoMock)
	uc := NewAuthUsecase(users, "test-secret")

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &model.User{ID: 1, Email: "alice@example.com", PasswordHash: string(hash), IsActive: true}

	users.On("FindByEmail", mock.Anything, "alice@example.com").Return(user, nil)

	_, err := uc.Login(ctx, validator.LoginInput{Email: "alice@example.com", Password: "wrong-pass"})
	assertErrContains(t, err, "invalid email or password")
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Login_UnknownOrInactiveUser(t *testing.T) {
	ctx := context.Background()
	users := new(UserRepoMock)
	uc := NewAuthUsecase(users, "test-secret")

	users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	users.On("FindByEmail", mock.Anything, "frozen@example.com").
		Return(&model.User{ID: 2, Email: "frozen@example.com", PasswordHash: string(hash), IsActive: false}, nil)

	// 存在しないユーザーと無効ユーザーは同じ文言にする
	_, err := uc.Login(ctx, validator.LoginInput{Email: "ghost@example.com", Password: "password123"})
	assertErrContains(t, err, "invalid email or password")

	_, err = uc.Login(ctx, validator.LoginInput{Email: "frozen@example.com", Password: "password123"})
	assertErrContains(t, err, "invalid email or password")
}
