package access

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGDirectory implements Directory over the facilities tables.
type PGDirectory struct {
	pool *pgxpool.Pool
}

// NewPGDirectory wires a Directory on a pgx pool.
func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	return &PGDirectory{pool: pool}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (d *PGDirectory) AllFacilityIDs(ctx context.Context) ([]int64, error) {
	return d.ids(ctx, builder().Select("id").From("facilities").OrderBy("id"))
}

func (d *PGDirectory) FacilityIDsByProvince(ctx context.Context, provinceID int64) ([]int64, error) {
	return d.ids(ctx, builder().
		Select("f.id").
		From("facilities f").
		Join("districts d ON d.id = f.district_id").
		Where(sq.Eq{"d.province_id": provinceID}).
		OrderBy("f.id"))
}

func (d *PGDirectory) FacilityIDsByDistrict(ctx context.Context, districtID int64) ([]int64, error) {
	return d.ids(ctx, builder().
		Select("id").
		From("facilities").
		Where(sq.Eq{"district_id": districtID}).
		OrderBy("id"))
}

// FacilityWithChildren returns the facility and its direct children only.
func (d *PGDirectory) FacilityWithChildren(ctx context.Context, facilityID int64) ([]int64, error) {
	return d.ids(ctx, builder().
		Select("id").
		From("facilities").
		Where(sq.Or{sq.Eq{"id": facilityID}, sq.Eq{"parent_facility_id": facilityID}}).
		OrderBy("id"))
}

func (d *PGDirectory) ids(ctx context.Context, query sq.SelectBuilder) ([]int64, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build facility query: %w", err)
	}
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DistrictIDs lists every district that has at least one facility.
func (d *PGDirectory) DistrictIDs(ctx context.Context) ([]int64, error) {
	return d.ids(ctx, builder().
		Select("DISTINCT district_id").
		From("facilities").
		OrderBy("district_id"))
}
