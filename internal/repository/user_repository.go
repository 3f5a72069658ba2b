package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UsernamesByIDs returns the usernames of the given users, sorted. Unknown ids are skipped.
func (r *UserRepository) UsernamesByIDs(ctx context.Context, ids []int64) ([]string, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT username FROM users
		WHERE id = ANY($1)
		ORDER BY username`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usernames := make([]string, 0, len(ids))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		usernames = append(usernames, name)
	}
	return usernames, rows.Err()
}
