package privilege

import (
	"context"
	"fmt"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresStore struct {
	db    rowQuerier
	query string
}

func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to privilege database")
	}
	return pool, nil
}

func NewPostgresStore(db rowQuerier, table string) *postgresStore {
	return &postgresStore{
		db: db,
		query: fmt.Sprintf(
			"SELECT user_id, created_at FROM %s WHERE user_id = $1 LIMIT 1",
			pgx.Identifier{table}.Sanitize(),
		),
	}
}

func (store *postgresStore) LookupAdmin(ctx context.Context, userId string) (*common.AdminUser, error) {
	var row common.AdminUser
	err := store.db.QueryRow(ctx, store.query, userId).Scan(&row.UserId, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &common.StoreError{
			Code:    common.NoRowsErrorCode,
			Message: "admin user row not found",
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "error querying admin user")
	}
	return &row, nil
}
