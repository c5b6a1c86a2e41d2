package service_test

import (
	"errors"
	"testing"
	"time"

	appErrors "github.com/espressolabs/coffee-shop-platform/internal/errors"
	"github.com/espressolabs/coffee-shop-platform/internal/models"
	repository "github.com/espressolabs/coffee-shop-platform/internal/repositories"
	service "github.com/espressolabs/coffee-shop-platform/internal/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testJWTKey = []byte("test-signing-key")

func newUserFixture() (*repository.MockUserRepository, *repository.MockRateLimitRepository, service.UserService) {
	users := repository.NewMockUserRepository()
	rateLimit := repository.NewMockRateLimitRepository()

	return users, rateLimit, service.NewUserService(users, rateLimit, testJWTKey, 24*time.Hour)
}

func TestRegister(t *testing.T) {
	ctx := t.Context()

	t.Run("Success", func(t *testing.T) {
		users, _, svc := newUserFixture()

		users.On("GetUserByEmail", ctx, "mina@example.com").Return(nil, errors.New("not found")).Once()
		users.On("CreateUser", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

		user, err := svc.Register(ctx, &models.RegisterRequest{
			Name:     "Mina",
			Email:    "mina@example.com",
			Password: "correct horse battery",
		})

		require.NoError(t, err)
		assert.Equal(t, models.RoleCustomer, user.Role)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("correct horse battery")),
			"stored password should be a bcrypt hash of the submitted one")
		users.AssertExpectations(t)
	})

	t.Run("Duplicate Email", func(t *testing.T) {
		users, _, svc := newUserFixture()

		users.On("GetUserByEmail", ctx, "mina@example.com").Return(&models.User{Email: "mina@example.com"}, nil).Once()

		_, err := svc.Register(ctx, &models.RegisterRequest{
			Name:     "Mina",
			Email:    "mina@example.com",
			Password: "correct horse battery",
		})

		require.Error(t, err)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeDuplicateEntry, appErr.Code)
		users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})
}

func TestLogin(t *testing.T) {
	ctx := t.Context()

	hashed, err := bcrypt.GenerateFromPassword([]byte("correct horse battery"), bcrypt.MinCost)
	require.NoError(t, err)

	storedUser := &models.User{
		ID:       uuid.New(),
		Email:    "mina@example.com",
		Password: string(hashed),
		Role:     models.RoleAdmin,
	}

	t.Run("Success Issues A Token With Role Claims", func(t *testing.T) {
		users, rateLimit, svc := newUserFixture()

		rateLimit.On("CheckLoginRateLimit", ctx, "mina@example.com").Return(true, 4, 0, nil).Once()
		users.On("GetUserByEmail", ctx, "mina@example.com").Return(storedUser, nil).Once()

		resp, err := svc.Login(ctx, &models.LoginRequest{Email: "mina@example.com", Password: "correct horse battery"})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		require.NotEmpty(t, resp.Token)
		assert.Positive(t, resp.ExpiresIn)

		claims := &models.Claims{}

		_, err = jwt.ParseWithClaims(resp.Token, claims, func(token *jwt.Token) (any, error) {
			return testJWTKey, nil
		})
		require.NoError(t, err)
		assert.Equal(t, storedUser.ID, claims.UserID)
		assert.Equal(t, models.RoleAdmin, claims.Role)
		assert.True(t, claims.IsAdmin())
	})

	t.Run("Wrong Password", func(t *testing.T) {
		users, rateLimit, svc := newUserFixture()

		rateLimit.On("CheckLoginRateLimit", ctx, "mina@example.com").Return(true, 3, 0, nil).Once()
		users.On("GetUserByEmail", ctx, "mina@example.com").Return(storedUser, nil).Once()

		resp, err := svc.Login(ctx, &models.LoginRequest{Email: "mina@example.com", Password: "wrong"})

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Empty(t, resp.Token)
		assert.Equal(t, 3, resp.RemainingTries)
	})

	t.Run("Rate Limited", func(t *testing.T) {
		users, rateLimit, svc := newUserFixture()

		rateLimit.On("CheckLoginRateLimit", ctx, "mina@example.com").Return(false, 0, 42, nil).Once()

		resp, err := svc.Login(ctx, &models.LoginRequest{Email: "mina@example.com", Password: "correct horse battery"})

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, 42, resp.RetryAfter)
		users.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
	})

	t.Run("Rate Limit Backend Failure", func(t *testing.T) {
		_, rateLimit, svc := newUserFixture()

		rateLimit.On("CheckLoginRateLimit", ctx, "mina@example.com").Return(false, 0, 0, errors.New("redis down")).Once()

		_, err := svc.Login(ctx, &models.LoginRequest{Email: "mina@example.com", Password: "correct horse battery"})

		require.Error(t, err)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeThirdPartyError, appErr.Code)
	})
}
