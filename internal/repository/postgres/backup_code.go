package postgres

import (
	"context"
	"database/sql"
	"sentinel/internal/models"
	"sentinel/internal/repository"

	"github.com/google/uuid"
)

type backupCodeRepository struct {
	repository.BaseRepository
}

// NewBackupCodeRepository creates a new PostgreSQL backup code repository
func NewBackupCodeRepository(db *sql.DB) repository.BackupCodeRepository {
	return &backupCodeRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *backupCodeRepository) Replace(ctx context.Context, userID uuid.UUID, codeHashes []string) error {
	return r.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
			return err
		}

		query := `
			INSERT INTO backup_codes (id, user_id, code_hash)
			VALUES ($1, $2, $3)`

		for _, hash := range codeHashes {
			if _, err := tx.ExecContext(ctx, query, uuid.New(), userID, hash); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *backupCodeRepository) ListUnused(ctx context.Context, userID uuid.UUID) ([]models.BackupCode, error) {
	query := `
		SELECT id, user_id, code_hash, used, used_at, created_at
		FROM backup_codes
		WHERE user_id = $1 AND used = false
		ORDER BY created_at`

	rows, err := r.DB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []models.BackupCode
	for rows.Next() {
		var code models.BackupCode
		err := rows.Scan(
			&code.ID,
			&code.UserID,
			&code.CodeHash,
			&code.Used,
			&code.UsedAt,
			&code.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return codes, nil
}

func (r *backupCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	// The used = false guard makes consumption at-most-once: of two
	// concurrent callers, only one update affects a row.
	query := `
		UPDATE backup_codes
		SET used = true, used_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND used = false`

	result, err := r.DB().ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *backupCodeRepository) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM backup_codes WHERE user_id = $1`
	_, err := r.DB().ExecContext(ctx, query, userID)
	return err
}
