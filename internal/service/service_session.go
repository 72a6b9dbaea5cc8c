// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/consultamed/auth-core/internal/kvstore"
	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/utils"
	"github.com/consultamed/auth-core/models"
)

type sessionService struct {
	records  *kvstore.Records
	logger   *logger.Logger
	lifetime time.Duration

	now func() time.Time
}

// NewSessionService builds the SessionService with the given session lifetime.
func NewSessionService(records *kvstore.Records, lifetime time.Duration, log *logger.Logger) SessionService {
	return &sessionService{
		records:  records,
		logger:   log,
		lifetime: lifetime,
		now:      time.Now,
	}
}

func (s *sessionService) Create(ctx context.Context, userID string, client models.ClientInfo) (models.Session, error) {
	now := s.now()
	session := models.Session{
		ID:        utils.NewID(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.lifetime),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}

	if err := s.records.PutSession(ctx, session); err != nil {
		return models.Session{}, fmt.Errorf("storing session: %w", err)
	}

	return session, nil
}

// Get returns the live session, or ErrRecordNotFound for an unknown session.
// An expired session is removed on read and reported as not found.
func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.records.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, kvstore.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	if session.Expired(s.now()) {
		_ = s.records.DeleteSession(ctx, sessionID)
		return nil, kvstore.ErrRecordNotFound
	}

	return session, nil
}

func (s *sessionService) Invalidate(ctx context.Context, sessionID string) error {
	if err := s.records.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
