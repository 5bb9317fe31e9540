package periods

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads reporting periods.
type Repository interface {
	Get(ctx context.Context, id int64) (Period, error)
	Active(ctx context.Context) (Period, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func selectPeriods() sq.SelectBuilder {
	return builder().
		Select("id", "year", "period_type", "start_date", "end_date", "status").
		From("reporting_periods")
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Period, error) {
	return r.queryOne(ctx, selectPeriods().Where(sq.Eq{"id": id}))
}

// Active returns the most recent period in ACTIVE status.
func (r *pgRepository) Active(ctx context.Context) (Period, error) {
	return r.queryOne(ctx, selectPeriods().
		Where(sq.Eq{"status": StatusActive}).
		OrderBy("start_date DESC").
		Limit(1))
}

func (r *pgRepository) queryOne(ctx context.Context, query sq.SelectBuilder) (Period, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return Period{}, fmt.Errorf("build period query: %w", err)
	}
	var p Period
	err = r.pool.QueryRow(ctx, sql, args...).
		Scan(&p.ID, &p.Year, &p.PeriodType, &p.StartDate, &p.EndDate, &p.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, err
	}
	return p, nil
}
