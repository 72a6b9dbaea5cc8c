// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/consultamed/auth-core/internal/config"
	"github.com/consultamed/auth-core/internal/kvstore"
	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/utils"
	"github.com/consultamed/auth-core/models"
)

type tokenService struct {
	records *kvstore.Records
	logger  *logger.Logger

	accessSecret    string
	refreshSecret   string
	issuer          string
	accessDuration  time.Duration
	refreshDuration time.Duration
	soonWindow      time.Duration

	now func() time.Time
}

// NewTokenService builds the TokenService from the token configuration
// section.
func NewTokenService(records *kvstore.Records, cfg *config.StructuredConfig, log *logger.Logger) TokenService {
	return &tokenService{
		records:         records,
		logger:          log,
		accessSecret:    cfg.Tokens.AccessSecret,
		refreshSecret:   cfg.Tokens.RefreshSecret,
		issuer:          cfg.Tokens.Issuer,
		accessDuration:  cfg.Tokens.AccessDuration,
		refreshDuration: cfg.Tokens.RefreshDuration,
		soonWindow:      cfg.Tokens.RefreshSoonWindow,
		now:             time.Now,
	}
}

func (s *tokenService) IssuePair(ctx context.Context, user models.User, sessionID string, client models.ClientInfo) (models.TokenPair, error) {
	if sessionID == "" {
		return models.TokenPair{}, errors.New("cannot issue tokens without a session")
	}

	now := s.now()
	tokenID := utils.NewID()

	accessClaims := models.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{models.AudienceAccess},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessDuration)),
			ID:        utils.NewID(),
		},
		Email:         user.Email,
		Role:          user.Role,
		Specialty:     user.Specialty,
		LicenseNumber: user.LicenseNumber,
		SessionID:     sessionID,
	}

	refreshClaims := models.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{models.AudienceRefresh},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshDuration)),
			ID:        tokenID,
		},
		SessionID: sessionID,
	}

	accessToken, err := utils.SignJWTToken(accessClaims, s.accessSecret)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("signing access token: %w", err)
	}

	refreshToken, err := utils.SignJWTToken(refreshClaims, s.refreshSecret)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("signing refresh token: %w", err)
	}

	record := models.RefreshTokenRecord{
		TokenID:   tokenID,
		UserID:    user.ID,
		SessionID: sessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshDuration),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Active:    true,
	}
	if err = s.records.PutRefreshToken(ctx, record); err != nil {
		return models.TokenPair{}, fmt.Errorf("storing refresh token record: %w", err)
	}

	return models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        int64(s.accessDuration.Seconds()),
		RefreshExpiresIn: int64(s.refreshDuration.Seconds()),
	}, nil
}

func (s *tokenService) VerifyAccess(ctx context.Context, tokenString string) (*models.AccessClaims, error) {
	claims := &models.AccessClaims{}
	err := utils.ParseJWTToken(tokenString, claims, s.accessSecret, s.issuer, models.AudienceAccess)
	if err != nil {
		// expired vs malformed is logged, never disclosed to the caller
		logger.FromContext(ctx).Debug().
			Bool("expired", errors.Is(err, utils.ErrTokenExpired)).
			Err(err).
			Msg("access token rejected")
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *tokenService) ConsumeRefresh(ctx context.Context, tokenString string) (*models.RefreshClaims, error) {
	claims := &models.RefreshClaims{}
	err := utils.ParseJWTToken(tokenString, claims, s.refreshSecret, s.issuer, models.AudienceRefresh)
	if err != nil {
		logger.FromContext(ctx).Debug().
			Bool("expired", errors.Is(err, utils.ErrTokenExpired)).
			Err(err).
			Msg("refresh token rejected")
		return nil, ErrInvalidToken
	}

	record, err := s.records.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, kvstore.ErrRecordNotFound) {
			// already rotated, revoked, or swept
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("loading refresh token record: %w", err)
	}

	if !record.Usable(s.now()) {
		// dead record, best-effort cleanup
		_, _ = s.records.ConsumeRefreshToken(ctx, claims.ID)
		return nil, ErrInvalidToken
	}

	consumed, err := s.records.ConsumeRefreshToken(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("consuming refresh token record: %w", err)
	}
	if !consumed {
		// lost the race against a concurrent rotation of the same token
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *tokenService) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	keys, err := s.records.ListRefreshTokenKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing refresh token records: %w", err)
	}

	revoked := 0
	for _, key := range keys {
		tokenID := strings.TrimPrefix(key, kvstore.PrefixRefreshTokens)
		record, err := s.records.GetRefreshToken(ctx, tokenID)
		if err != nil {
			continue
		}
		if record.UserID != userID {
			continue
		}

		removed, err := s.records.ConsumeRefreshToken(ctx, tokenID)
		if err != nil {
			logger.FromContext(ctx).Err(err).Str("token_id", tokenID).Msg("failed to revoke refresh token")
			continue
		}
		if removed {
			revoked++
		}
	}

	return revoked, nil
}

func (s *tokenService) IsExpiringSoon(claims *models.AccessClaims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return utils.IsExpiringSoon(claims.ExpiresAt.Time, s.now(), s.soonWindow)
}
