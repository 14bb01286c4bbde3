package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/origincert/partner-gateway/internal/auth"
	"github.com/origincert/partner-gateway/internal/domain/partner"
)

// PartnerKeyRepository persists issued partner keys as SHA-256 hashes. The
// raw credential is shown once at generation time and never stored.
type PartnerKeyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPartnerKeyRepository(db *pgxpool.Pool, logger *zap.Logger) *PartnerKeyRepository {
	return &PartnerKeyRepository{
		db:     db,
		logger: logger.Named("PartnerKeyRepository"),
	}
}

var _ partner.Repository = (*PartnerKeyRepository)(nil)

func (r *PartnerKeyRepository) IsValidKey(ctx context.Context, apiKey string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM partner_keys
			WHERE key_hash = $1 AND is_enabled = TRUE
		)
	`
	keyHash := auth.HashAPIKey(apiKey)

	var exists bool
	if err := r.db.QueryRow(ctx, query, keyHash).Scan(&exists); err != nil {
		r.logger.Error("Failed to check partner key membership", zap.Error(err))
		return false, fmt.Errorf("db error checking partner key: %w", err)
	}

	if exists {
		r.touchLastUsed(keyHash)
	}

	return exists, nil
}

// touchLastUsed records key usage off the request path; failures are logged
// and dropped because last_used_at is advisory.
func (r *PartnerKeyRepository) touchLastUsed(keyHash string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		query := `UPDATE partner_keys SET last_used_at = $1 WHERE key_hash = $2`
		if _, err := r.db.Exec(ctx, query, time.Now().UTC(), keyHash); err != nil {
			r.logger.Error("Failed to update partner key last used time", zap.Error(err))
		}
	}()
}

func (r *PartnerKeyRepository) Create(ctx context.Context, key *partner.Key) (uuid.UUID, error) {
	query := `
		INSERT INTO partner_keys (key_hash, partner_id, is_enabled)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var insertedID uuid.UUID
	err := r.db.QueryRow(ctx, query, key.KeyHash, key.PartnerID, key.IsEnabled).Scan(&insertedID)
	if err != nil {
		r.logger.Error("Failed to insert partner key", zap.String("partner_id", key.PartnerID), zap.Error(err))
		return uuid.Nil, fmt.Errorf("db error creating partner key: %w", err)
	}

	r.logger.Info("Partner key created", zap.String("id", insertedID.String()), zap.String("partner_id", key.PartnerID))
	return insertedID, nil
}

func (r *PartnerKeyRepository) Disable(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE partner_keys SET is_enabled = FALSE WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to disable partner key", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("db error disabling partner key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return partner.ErrKeyNotFound
	}

	r.logger.Info("Partner key disabled", zap.String("id", id.String()))
	return nil
}
