// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/consultamed/auth-core/internal/config"
	"github.com/consultamed/auth-core/internal/kvstore"
	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/utils"
	"github.com/consultamed/auth-core/models"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type authService struct {
	records  *kvstore.Records
	tokens   TokenService
	sessions SessionService
	audit    AuditService
	logger   *logger.Logger

	registrationPolicy string
	passwords          passwordPolicy
	recoveryDuration   time.Duration

	now func() time.Time
}

// NewAuthService wires the authentication flows on top of the token, session,
// and audit services.
func NewAuthService(records *kvstore.Records, tokens TokenService, sessions SessionService, audit AuditService, cfg *config.StructuredConfig, log *logger.Logger) AuthService {
	return &authService{
		records:            records,
		tokens:             tokens,
		sessions:           sessions,
		audit:              audit,
		logger:             log,
		registrationPolicy: cfg.App.RegistrationPolicy,
		passwords:          newPasswordPolicy(cfg.App.PasswordMinLength, cfg.App.PasswordClasses),
		recoveryDuration:   cfg.Tokens.RecoveryDuration,
		now:                time.Now,
	}
}

// Login verifies credentials and, on success, opens a session and issues a
// token pair. Unknown email and wrong password are indistinguishable to the
// caller; the precise reason goes to the audit trail only.
func (s *authService) Login(ctx context.Context, req models.LoginRequest, client models.ClientInfo) (*models.LoginResponse, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, NewValidationError("email", "correo electrónico y contraseña son obligatorios")
	}

	user, err := s.records.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, kvstore.ErrRecordNotFound) {
			s.auditLoginFailure(ctx, "", email, client, "unknown_email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading user by email: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.auditLoginFailure(ctx, user.ID, email, client, "wrong_password")
		return nil, ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		s.auditLoginFailure(ctx, user.ID, email, client, "account_inactive")
		return nil, ErrAccountInactive
	}

	session, err := s.sessions.Create(ctx, user.ID, client)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	pair, err := s.tokens.IssuePair(ctx, *user, session.ID, client)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}

	now := s.now()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	user.Deployment.LastSessionID = session.ID
	if err = s.records.PutUser(ctx, *user); err != nil {
		// login already succeeded; the stale last-login stamp is tolerable
		logger.FromContext(ctx).Err(err).Str("user_id", user.ID).Msg("failed to update last login")
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:     user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "session",
		ResourceID: session.ID,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
		Success:    true,
	})

	return &models.LoginResponse{
		User:    user.Sanitized(),
		Tokens:  pair,
		Session: models.SessionInfo{ID: session.ID, ExpiresAt: session.ExpiresAt},
	}, nil
}

// Refresh rotates a refresh token: the presented token is atomically retired
// and a fresh pair bound to the same session is issued. A token that is
// invalid, expired, already rotated, or whose account can no longer
// authenticate is rejected uniformly with ErrInvalidToken.
func (s *authService) Refresh(ctx context.Context, refreshToken string, client models.ClientInfo) (*models.TokenPair, error) {
	claims, err := s.tokens.ConsumeRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			s.audit.Record(ctx, models.AuditEntry{
				Action:    models.AuditActionRefresh,
				IPAddress: client.IPAddress,
				UserAgent: client.UserAgent,
				Success:   false,
				Metadata:  map[string]string{"reason": "token_rejected"},
			})
		}
		return nil, err
	}

	user, err := s.records.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, kvstore.ErrRecordNotFound) {
			s.auditRefreshFailure(ctx, claims.Subject, client, "user_missing")
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if !user.CanAuthenticate() {
		s.auditRefreshFailure(ctx, user.ID, client, "account_inactive")
		return nil, ErrAccountInactive
	}

	pair, err := s.tokens.IssuePair(ctx, *user, claims.SessionID, client)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:     user.ID,
		Action:     models.AuditActionRefresh,
		Resource:   "session",
		ResourceID: claims.SessionID,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
		Success:    true,
	})

	return &pair, nil
}

// Logout ends the caller's session and revokes every outstanding refresh
// token of the account. Repeating a logout is harmless.
func (s *authService) Logout(ctx context.Context, identity models.Identity, sessionID string, client models.ClientInfo) {
	if sessionID == "" {
		sessionID = identity.SessionID
	}
	if sessionID != "" {
		if err := s.sessions.Invalidate(ctx, sessionID); err != nil {
			logger.FromContext(ctx).Err(err).Str("session_id", sessionID).Msg("failed to invalidate session")
		}
	}

	revoked, err := s.tokens.RevokeAllForUser(ctx, identity.UserID)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("user_id", identity.UserID).Msg("failed to revoke refresh tokens")
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:     identity.UserID,
		Action:     models.AuditActionLogout,
		Resource:   "session",
		ResourceID: sessionID,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
		Success:    true,
		Metadata:   map[string]string{"revoked_tokens": strconv.Itoa(revoked)},
	})
}

// Register creates a professional account. Email and license uniqueness are
// claimed atomically before the user record is written, so two concurrent
// registrations of the same email (or license) produce exactly one account.
func (s *authService) Register(ctx context.Context, req models.RegisterRequest, client models.ClientInfo) (*models.RegisterResponse, error) {
	if verr := s.validateRegistration(req); verr != nil {
		return nil, verr
	}

	email := models.NormalizeEmail(req.Email)
	license := models.NormalizeLicense(req.LicenseNumber)
	userID := utils.NewID()

	claimed, err := s.records.ClaimEmail(ctx, email, userID)
	if err != nil {
		return nil, fmt.Errorf("claiming email: %w", err)
	}
	if !claimed {
		s.auditRegisterFailure(ctx, email, client, "email_taken")
		return nil, ErrEmailAlreadyExists
	}

	claimed, err = s.records.ClaimLicense(ctx, license, userID)
	if err != nil {
		s.rollbackRegistration(ctx, email)
		return nil, fmt.Errorf("claiming license: %w", err)
	}
	if !claimed {
		s.rollbackRegistration(ctx, email)
		s.auditRegisterFailure(ctx, email, client, "license_taken")
		return nil, ErrLicenseAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.rollbackRegistration(ctx, email)
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	autoActivate := s.registrationPolicy != config.RegistrationPendingApproval
	now := s.now()
	user := models.User{
		ID:            userID,
		Email:         email,
		PasswordHash:  string(hash),
		GivenName:     req.GivenName,
		FamilyName:    req.FamilyName,
		Role:          models.RolePractitioner,
		Specialty:     req.Specialty,
		LicenseNumber: license,
		FacilityID:    req.FacilityID,
		Active:        autoActivate,
		Verified:      autoActivate,
		CreatedAt:     now,
		UpdatedAt:     now,
		Preferences:   models.UserPreferences{Locale: "es", Notifications: true},
	}

	if err = s.records.PutUser(ctx, user); err != nil {
		s.rollbackRegistration(ctx, email)
		return nil, fmt.Errorf("storing user: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:     user.ID,
		Action:     models.AuditActionRegister,
		Resource:   "user",
		ResourceID: user.ID,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
		Success:    true,
		Metadata:   map[string]string{"auto_activated": strconv.FormatBool(autoActivate)},
	})

	response := models.RegisterResponse{
		User:            user.Sanitized(),
		PendingApproval: !autoActivate,
	}
	if !autoActivate {
		return &response, nil
	}

	session, err := s.sessions.Create(ctx, user.ID, client)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	pair, err := s.tokens.IssuePair(ctx, user, session.ID, client)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}

	response.Tokens = &pair
	response.Session = &models.SessionInfo{ID: session.ID, ExpiresAt: session.ExpiresAt}

	return &response, nil
}

// RequestPasswordRecovery creates a single-use recovery token for the
// account, or silently does nothing for an unknown email. Either way the
// attempt is audited.
func (s *authService) RequestPasswordRecovery(ctx context.Context, email string, client models.ClientInfo) (*models.RecoveryToken, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, NewValidationError("email", "el correo electrónico es obligatorio")
	}

	user, err := s.records.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, kvstore.ErrRecordNotFound) {
			s.audit.Record(ctx, models.AuditEntry{
				Action:    models.AuditActionRecoveryStart,
				IPAddress: client.IPAddress,
				UserAgent: client.UserAgent,
				Success:   false,
				Metadata:  map[string]string{"reason": "unknown_email"},
			})
			return nil, nil
		}
		return nil, fmt.Errorf("loading user by email: %w", err)
	}

	now := s.now()
	token := models.RecoveryToken{
		Token:     utils.NewID(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.recoveryDuration),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}
	if err = s.records.PutRecoveryToken(ctx, token); err != nil {
		return nil, fmt.Errorf("storing recovery token: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:    user.ID,
		Action:    models.AuditActionRecoveryStart,
		Resource:  "user",
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   true,
	})

	return &token, nil
}

// ResetPassword redeems a recovery token, replaces the password, and revokes
// every outstanding refresh token of the account.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string, client models.ClientInfo) error {
	if token == "" {
		return NewValidationError("token", "el token de recuperación es obligatorio")
	}
	if verr := s.passwords.Validate("newPassword", newPassword); verr != nil {
		return verr
	}

	record, err := s.records.GetRecoveryToken(ctx, token)
	if err != nil {
		if errors.Is(err, kvstore.ErrRecordNotFound) {
			s.auditResetFailure(ctx, "", client, "token_unknown")
			return ErrRecoveryTokenInvalid
		}
		return fmt.Errorf("loading recovery token: %w", err)
	}

	if record.Expired(s.now()) {
		_, _ = s.records.ConsumeRecoveryToken(ctx, token)
		s.auditResetFailure(ctx, record.UserID, client, "token_expired")
		return ErrRecoveryTokenExpired
	}

	consumed, err := s.records.ConsumeRecoveryToken(ctx, token)
	if err != nil {
		return fmt.Errorf("consuming recovery token: %w", err)
	}
	if !consumed {
		s.auditResetFailure(ctx, record.UserID, client, "token_already_used")
		return ErrRecoveryTokenInvalid
	}

	user, err := s.records.GetUser(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, kvstore.ErrRecordNotFound) {
			s.auditResetFailure(ctx, record.UserID, client, "user_missing")
			return ErrRecoveryTokenInvalid
		}
		return fmt.Errorf("loading user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user.PasswordHash = string(hash)
	user.UpdatedAt = s.now()
	if err = s.records.PutUser(ctx, *user); err != nil {
		return fmt.Errorf("storing user: %w", err)
	}

	revoked, err := s.tokens.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("user_id", user.ID).Msg("failed to revoke refresh tokens after reset")
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:    user.ID,
		Action:    models.AuditActionPasswordReset,
		Resource:  "user",
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   true,
		Metadata:  map[string]string{"revoked_tokens": strconv.Itoa(revoked)},
	})

	return nil
}

func (s *authService) validateRegistration(req models.RegisterRequest) *ValidationError {
	fields := map[string]string{}

	email := models.NormalizeEmail(req.Email)
	if email == "" {
		fields["email"] = "el correo electrónico es obligatorio"
	} else if !emailPattern.MatchString(email) {
		fields["email"] = "el correo electrónico no es válido"
	}

	if req.GivenName == "" {
		fields["givenName"] = "el nombre es obligatorio"
	}
	if req.FamilyName == "" {
		fields["familyName"] = "el apellido es obligatorio"
	}
	if models.NormalizeLicense(req.LicenseNumber) == "" {
		fields["licenseNumber"] = "el número de licencia es obligatorio"
	}

	if verr := s.passwords.Validate("password", req.Password); verr != nil {
		for field, message := range verr.Fields {
			fields[field] = message
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *authService) rollbackRegistration(ctx context.Context, email string) {
	if err := s.records.ReleaseEmail(ctx, email); err != nil {
		logger.FromContext(ctx).Err(err).Str("email", email).Msg("failed to roll back email claim")
	}
}

func (s *authService) auditLoginFailure(ctx context.Context, userID, email string, client models.ClientInfo, reason string) {
	s.audit.Record(ctx, models.AuditEntry{
		UserID:    userID,
		Action:    models.AuditActionLogin,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   false,
		Metadata:  map[string]string{"reason": reason, "email": email},
	})
}

func (s *authService) auditRegisterFailure(ctx context.Context, email string, client models.ClientInfo, reason string) {
	s.audit.Record(ctx, models.AuditEntry{
		Action:    models.AuditActionRegister,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   false,
		Metadata:  map[string]string{"reason": reason, "email": email},
	})
}

func (s *authService) auditRefreshFailure(ctx context.Context, userID string, client models.ClientInfo, reason string) {
	s.audit.Record(ctx, models.AuditEntry{
		UserID:    userID,
		Action:    models.AuditActionRefresh,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   false,
		Metadata:  map[string]string{"reason": reason},
	})
}

func (s *authService) auditResetFailure(ctx context.Context, userID string, client models.ClientInfo, reason string) {
	s.audit.Record(ctx, models.AuditEntry{
		UserID:    userID,
		Action:    models.AuditActionPasswordReset,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   false,
		Metadata:  map[string]string{"reason": reason},
	})
}
