// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/consultamed/auth-core/internal/kvstore"
	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/utils"
	"github.com/consultamed/auth-core/models"
)

type auditService struct {
	records *kvstore.Records
	logger  *logger.Logger

	now func() time.Time
}

// NewAuditService builds the AuditService on top of the record store.
func NewAuditService(records *kvstore.Records, log *logger.Logger) AuditService {
	return &auditService{
		records: records,
		logger:  log,
		now:     time.Now,
	}
}

// Record appends the entry to the audit trail and mirrors it to the
// structured log. A storage failure is logged and swallowed: audit writes
// never fail the operation that produced them.
func (s *auditService) Record(ctx context.Context, entry models.AuditEntry) {
	if entry.ID == "" {
		entry.ID = utils.NewID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}

	event := s.logger.Info().
		Str("audit_id", entry.ID).
		Str("action", entry.Action).
		Str("actor", entry.Actor()).
		Str("ip", entry.IPAddress).
		Bool("success", entry.Success)
	if entry.Resource != "" {
		event = event.Str("resource", entry.Resource)
	}
	if len(entry.Metadata) > 0 {
		event = event.Interface("metadata", entry.Metadata)
	}
	event.Msg("audit event")

	if err := s.records.PutAudit(ctx, entry); err != nil {
		s.logger.Err(err).Str("action", entry.Action).Msg("failed to persist audit entry")
	}
}

// Recent loads up to limit entries, newest first. Audit keys sort
// chronologically, so the newest entries are the tail of the key listing.
func (s *auditService) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	keys, err := s.records.ListAuditKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	sort.Strings(keys)

	entries := make([]models.AuditEntry, 0, limit)
	for i := len(keys) - 1; i >= 0 && len(entries) < limit; i-- {
		entry, err := s.records.GetAuditByKey(ctx, keys[i])
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}
