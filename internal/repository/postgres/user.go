package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/sitebeam/notify-service/internal/repository"
)

type userDirectory struct {
	*BaseRepository
}

func NewUserDirectory(base *BaseRepository) repository.UserDirectory {
	return &userDirectory{BaseRepository: base}
}

func (r *userDirectory) Email(ctx context.Context, userID uuid.UUID) (string, string, error) {
	query := `SELECT email, full_name FROM users WHERE id = $1`
	var row struct {
		Email    string `db:"email"`
		FullName string `db:"full_name"`
	}
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return "", "", fmt.Errorf("user %s not found", userID)
		}
		return "", "", fmt.Errorf("failed to look up user: %w", err)
	}
	return row.Email, row.FullName, nil
}
