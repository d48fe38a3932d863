package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"logmene/internal/models"
	"logmene/pkg/email"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) userResult(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, userID string) (*models.User, error) {
	return m.userResult(m.Called(ctx, userID))
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.userResult(m.Called(ctx, email))
}

func (m *MockRepository) FindByPasswordResetToken(ctx context.Context, token string) (*models.User, error) {
	return m.userResult(m.Called(ctx, token))
}

func (m *MockRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockRepository) SetPasswordResetToken(ctx context.Context, userID string, token string, expiresAt time.Time) error {
	return m.Called(ctx, userID, token, expiresAt).Error(0)
}

func (m *MockRepository) UpdatePasswordAndClearResetToken(ctx context.Context, userID string, passwordHash string) error {
	return m.Called(ctx, userID, passwordHash).Error(0)
}

func (m *MockRepository) Create(ctx context.Context, user *models.User, passwordHash string) (*models.User, error) {
	return m.userResult(m.Called(ctx, user, passwordHash))
}

func (m *MockRepository) CreateOAuthUser(ctx context.Context, user *models.User) (*models.User, error) {
	return m.userResult(m.Called(ctx, user))
}

func (m *MockRepository) Update(ctx context.Context, userID string, data models.UserUpdateData) (*models.User, error) {
	return m.userResult(m.Called(ctx, userID, data))
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendEmail(ctx context.Context, to, subject, plainTextContent, htmlContent string) error {
	return m.Called(ctx, to, subject, plainTextContent, htmlContent).Error(0)
}

func newTestService(t *testing.T) (*Service, *MockRepository, *MockMailer) {
	t.Helper()
	tm, err := email.NewTemplateManager()
	require.NoError(t, err)
	repo := new(MockRepository)
	mailer := new(MockMailer)
	return NewService(repo, mailer, tm, testSecret, "http://localhost:5173", nil), repo, mailer
}

func parseClaims(t *testing.T, token string) *models.JwtCustomClaims {
	t.Helper()
	claims := &models.JwtCustomClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	return claims
}

func TestSignup_CompanyRequiresCNPJ(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Name: "Transportes Sul", Email: "ops@sul.com", Password: "password123", Role: models.RoleCompany,
	})

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "cnpj is required")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignup_EmailTaken(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.On("FindByEmail", mock.Anything, "ana@example.com").Return(&models.User{ID: "u1"}, nil)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Name: "Ana", Email: "ana@example.com", Password: "password123", Role: models.RoleClient,
	})

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestSignup_IssuesTokenWithRole(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	repo.On("FindByEmail", mock.Anything, "ops@sul.com").Return(nil, models.ErrNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Role == models.RoleCompany && u.CNPJ == "11222333000181"
	}), mock.AnythingOfType("string")).Return(&models.User{
		ID: "c1", Name: "Transportes Sul", Email: "ops@sul.com", Role: models.RoleCompany,
		CNPJ: "11222333000181", PasswordHash: "hash", IsActive: true,
	}, nil)
	mailer.On("SendEmail", mock.Anything, "ops@sul.com", "Welcome to LogMene", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Signup(context.Background(), models.SignupRequest{
		Name: "Transportes Sul", Email: "ops@sul.com", Password: "password123",
		Role: models.RoleCompany, CNPJ: "11222333000181",
	})
	require.NoError(t, err)
	svc.Wait()

	assert.Empty(t, resp.User.PasswordHash)
	claims := parseClaims(t, resp.AccessToken)
	assert.Equal(t, "c1", claims.UserID)
	assert.Equal(t, models.RoleCompany, claims.Role)
	assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Minute)
	mailer.AssertExpectations(t)
}

func TestSignup_ClientDropsCompanyFields(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	repo.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, models.ErrNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.CNPJ == "" && u.CompanyName == ""
	}), mock.AnythingOfType("string")).Return(&models.User{ID: "u1", Email: "ana@example.com", Role: models.RoleClient}, nil)
	mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("ses down"))

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Name: "Ana", Email: "ana@example.com", Password: "password123", Role: models.RoleClient,
		CNPJ: "11222333000181", CompanyName: "ignored",
	})
	svc.Wait()

	assert.NoError(t, err, "email failures never fail signup")
	repo.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		user     *models.User
		findErr  error
		password string
		wantErr  error
	}{
		{
			name:     "valid credentials",
			user:     &models.User{ID: "u1", Role: models.RoleClient, PasswordHash: string(hash), IsActive: true},
			password: "password123",
		},
		{
			name:     "wrong password",
			user:     &models.User{ID: "u1", PasswordHash: string(hash), IsActive: true},
			password: "nope",
			wantErr:  models.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			findErr:  models.ErrNotFound,
			password: "password123",
			wantErr:  models.ErrInvalidCredentials,
		},
		{
			name:     "oauth account without password",
			user:     &models.User{ID: "u1", AuthProvider: "google", IsActive: true},
			password: "",
			wantErr:  models.ErrInvalidCredentials,
		},
		{
			name:     "disabled account",
			user:     &models.User{ID: "u1", PasswordHash: string(hash), IsActive: false},
			password: "password123",
			wantErr:  models.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t)
			repo.On("FindByEmail", mock.Anything, "ana@example.com").Return(tt.user, tt.findErr)

			resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: tt.password})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.RoleClient, parseClaims(t, resp.AccessToken).Role)
		})
	}
}

func TestRequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, models.ErrNotFound)

	err := svc.RequestPasswordReset(context.Background(), "ghost@example.com")

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "SetPasswordResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestPasswordReset_SendsLink(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	repo.On("FindByEmail", mock.Anything, "ana@example.com").Return(&models.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}, nil)
	repo.On("SetPasswordResetToken", mock.Anything, "u1", mock.AnythingOfType("string"), mock.MatchedBy(func(at time.Time) bool {
		return at.After(time.Now()) && at.Before(time.Now().Add(passwordResetTTL+time.Minute))
	})).Return(nil)
	mailer.On("SendEmail", mock.Anything, "ana@example.com", "Reset Your Password",
		mock.MatchedBy(func(plain string) bool {
			return strings.Contains(plain, "http://localhost:5173/reset-password?token=")
		}), mock.Anything).Return(nil)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ana@example.com"))
	svc.Wait()

	repo.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestResetPassword(t *testing.T) {
	t.Run("invalid token", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.On("FindByPasswordResetToken", mock.Anything, "bad").Return(nil, models.ErrInvalidToken)

		_, err := svc.ResetPassword(context.Background(), "bad", "newpassword")
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("valid token logs the user in", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.On("FindByPasswordResetToken", mock.Anything, "good").Return(&models.User{ID: "u1", Role: models.RoleClient}, nil)
		repo.On("UpdatePasswordAndClearResetToken", mock.Anything, "u1", mock.MatchedBy(func(h string) bool {
			return bcrypt.CompareHashAndPassword([]byte(h), []byte("newpassword")) == nil
		})).Return(nil)

		resp, err := svc.ResetPassword(context.Background(), "good", "newpassword")
		require.NoError(t, err)
		assert.Equal(t, "u1", parseClaims(t, resp.AccessToken).UserID)
	})
}

func TestGoogleLogin_NotConfigured(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.HandleGoogleLogin()
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.HandleGoogleCallback(context.Background(), "code")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateUserProfile(t *testing.T) {
	name := "Ana Maria"
	company := "Ana Logística"

	t.Run("client cannot set company name", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.On("FindByID", mock.Anything, "u1").Return(&models.User{ID: "u1", Role: models.RoleClient}, nil)

		_, err := svc.UpdateUserProfile(context.Background(), "u1", models.UserUpdateData{CompanyName: &company})
		assert.ErrorIs(t, err, models.ErrValidation)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("name update", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		data := models.UserUpdateData{Name: &name}
		repo.On("Update", mock.Anything, "u1", data).Return(&models.User{ID: "u1", Name: name, PasswordHash: "hash"}, nil)

		user, err := svc.UpdateUserProfile(context.Background(), "u1", data)
		require.NoError(t, err)
		assert.Equal(t, name, user.Name)
		assert.Empty(t, user.PasswordHash)
	})
}
