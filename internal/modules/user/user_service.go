package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"logmene/internal/models"
	emailSvc "logmene/pkg/email"
	"logmene/pkg/logger"
	"logmene/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

const (
	tokenTTL         = 30 * 24 * time.Hour
	passwordResetTTL = 15 * time.Minute
	googleUserInfo   = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// ServiceInterface defines methods for user business logic.
type ServiceInterface interface {
	GetClientOrigin() string

	Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token string, newPassword string) (*models.AuthResponse, error)
	HandleGoogleLogin() (string, string, error)
	HandleGoogleCallback(ctx context.Context, code string) (*models.AuthResponse, error)

	GetUserProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, userID string, data models.UserUpdateData) (*models.User, error)
}

type Service struct {
	userRepo          RepositoryInterface
	emailer           emailSvc.ServiceInterface
	templateManager   *emailSvc.TemplateManager
	jwtSecret         string
	clientOrigin      string // frontend base URL used in email links and OAuth redirects
	googleOAuthConfig *oauth2.Config

	wg sync.WaitGroup
}

// NewService wires the user service. googleOAuthConfig may be nil when Google login is not configured.
func NewService(
	userRepo RepositoryInterface,
	emailer emailSvc.ServiceInterface,
	tm *emailSvc.TemplateManager,
	jwtSecret string,
	clientOrigin string,
	googleOAuthConfig *oauth2.Config,
) *Service {
	return &Service{
		userRepo:          userRepo,
		emailer:           emailer,
		templateManager:   tm,
		jwtSecret:         jwtSecret,
		clientOrigin:      clientOrigin,
		googleOAuthConfig: googleOAuthConfig,
	}
}

// GoogleUserInfo is the subset of Google's userinfo response we use.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (s *Service) GetClientOrigin() string {
	return s.clientOrigin
}

func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	if req.Role == models.RoleCompany && req.CNPJ == "" {
		return nil, fmt.Errorf("%w: cnpj is required for company accounts", models.ErrValidation)
	}
	if req.Role == models.RoleClient {
		req.CNPJ = ""
		req.CompanyName = ""
	}

	_, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("service.Signup.FindByEmail: %w", err)
	}
	if err == nil {
		return nil, fmt.Errorf("%w: email address is already in use", models.ErrConflict)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("service.Signup.HashPassword: %w", err)
	}

	newUser := &models.User{
		Name:        req.Name,
		Email:       req.Email,
		Role:        req.Role,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
		CNPJ:        req.CNPJ,
	}
	createdUser, err := s.userRepo.Create(ctx, newUser, string(hashedPassword))
	if err != nil {
		return nil, fmt.Errorf("service.Signup.CreateUser: %w", err)
	}

	s.sendWelcomeEmail(createdUser)

	return s.generateAuthResponse(createdUser)
}

func (s *Service) sendWelcomeEmail(user *models.User) {
	data := emailSvc.TemplateData{
		Name:    user.Name,
		Title:   "Welcome to LogMene",
		Message: "Your account is ready.",
		Link:    s.clientOrigin,
	}
	if user.Role == models.RoleCompany {
		data.Message = "Your company account is ready. New freight requests will show up on your dashboard."
	} else {
		data.Message = "Your account is ready. You can now publish freight requests and receive quotes."
	}
	htmlContent, err := s.templateManager.GenerateNotificationEmailHTML(data)
	if err != nil {
		logger.Error("failed to render welcome email", "user_id", user.ID, "error", err)
		return
	}
	s.sendAsync(user.Email, "Welcome to LogMene", data.Message, htmlContent)
}

// sendAsync delivers an email without blocking the caller. Failures are only logged.
func (s *Service) sendAsync(to, subject, plain, html string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.emailer.SendEmail(ctx, to, subject, plain, html); err != nil {
			logger.Warn("failed to send email", "to", to, "subject", subject, "error", err)
		}
	}()
}

// Wait blocks until in-flight emails have been handed to the sender.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) generateAuthResponse(user *models.User) (*models.AuthResponse, error) {
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenSignedString, err := accessToken.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	user.PasswordHash = ""

	return &models.AuthResponse{
		AccessToken: tokenSignedString,
		User:        user,
	}, nil
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	userWithHash, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service.Login.FindByEmail: %w", err)
	}

	// OAuth-only accounts have no password hash.
	if userWithHash.PasswordHash == "" {
		return nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(userWithHash.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	if !userWithHash.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", models.ErrForbidden)
	}

	return s.generateAuthResponse(userWithHash)
}

// RequestPasswordReset emails a one-time reset link. Unknown addresses succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.Info("password reset requested for unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("service.RequestPasswordReset.FindByEmail: %w", err)
	}

	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("service.RequestPasswordReset.GenerateToken: %w", err)
	}
	expiresAt := time.Now().Add(passwordResetTTL)

	if err := s.userRepo.SetPasswordResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return fmt.Errorf("service.RequestPasswordReset.SetToken: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.clientOrigin, token)
	htmlContent, err := s.templateManager.GenerateResetPasswordEmailHTML(emailSvc.TemplateData{
		Name: user.Name,
		Link: resetURL,
	})
	if err != nil {
		logger.Error("failed to render password reset email", "user_id", user.ID, "error", err)
		return nil
	}

	plainTextContent := fmt.Sprintf("Please click the following link in 15 minutes to reset your password: %s", resetURL)
	s.sendAsync(user.Email, "Reset Your Password", plainTextContent, htmlContent)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token string, newPassword string) (*models.AuthResponse, error) {
	user, err := s.userRepo.FindByPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrInvalidToken) || errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, fmt.Errorf("service.ResetPassword.FindByToken: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("service.ResetPassword.HashPassword: %w", err)
	}

	if err := s.userRepo.UpdatePasswordAndClearResetToken(ctx, user.ID, string(hashedPassword)); err != nil {
		return nil, fmt.Errorf("service.ResetPassword.UpdatePassword: %w", err)
	}

	return s.generateAuthResponse(user)
}

// HandleGoogleLogin returns the consent URL and the state value to pin in a cookie.
func (s *Service) HandleGoogleLogin() (string, string, error) {
	if s.googleOAuthConfig == nil {
		return "", "", fmt.Errorf("%w: google login is not configured", models.ErrNotFound)
	}
	state, err := utils.GenerateSecureToken(16)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state for google login: %w", err)
	}
	return s.googleOAuthConfig.AuthCodeURL(state), state, nil
}

// HandleGoogleCallback exchanges the code, then finds or creates the matching account.
// First-time Google users always become clients.
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*models.AuthResponse, error) {
	if s.googleOAuthConfig == nil {
		return nil, fmt.Errorf("%w: google login is not configured", models.ErrNotFound)
	}

	token, err := s.googleOAuthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange failed: %w", err)
	}

	userInfo, err := s.fetchGoogleUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	if !userInfo.VerifiedEmail {
		return nil, fmt.Errorf("%w: google email not verified", models.ErrInvalidCredentials)
	}

	user, err := s.userRepo.FindByEmail(ctx, userInfo.Email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("db error while finding user by email: %w", err)
	}

	if errors.Is(err, models.ErrNotFound) {
		name := userInfo.Name
		if name == "" {
			name = userInfo.Email
		}
		user, err = s.userRepo.CreateOAuthUser(ctx, &models.User{
			Name:           name,
			Email:          userInfo.Email,
			Role:           models.RoleClient,
			AuthProvider:   "google",
			AuthProviderID: userInfo.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("service.HandleGoogleCallback.CreateUser: %w", err)
		}
		logger.Info("created account from google login", "user_id", user.ID)
	}

	return s.generateAuthResponse(user)
}

func (s *Service) fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	client := s.googleOAuthConfig.Client(ctx, token)
	response, err := client.Get(googleUserInfo)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info from google: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo returned status %d", response.StatusCode)
	}

	var userInfo GoogleUserInfo
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &userInfo, nil
}

func (s *Service) GetUserProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.GetUserProfile: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateUserProfile changes contact details. Role and CNPJ are fixed at signup.
func (s *Service) UpdateUserProfile(ctx context.Context, userID string, data models.UserUpdateData) (*models.User, error) {
	if data.CompanyName != nil {
		current, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("service.UpdateUserProfile.FindByID: %w", err)
		}
		if current.Role != models.RoleCompany {
			return nil, fmt.Errorf("%w: company_name can only be set on company accounts", models.ErrValidation)
		}
	}

	updatedUser, err := s.userRepo.Update(ctx, userID, data)
	if err != nil {
		return nil, fmt.Errorf("service.UpdateUserProfile: %w", err)
	}
	updatedUser.PasswordHash = ""
	return updatedUser, nil
}
