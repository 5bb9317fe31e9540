package records

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthfin/healthfin/internal/aggregation"
)

// Repository reads facilities, form entries and catalogs.
type Repository interface {
	Facilities(ctx context.Context, ids []int64) ([]Facility, error)
	FormEntries(ctx context.Context, q EntryQuery) ([]FormEntry, error)
	Catalog(ctx context.Context, projectType, facilityType, entityType string) ([]aggregation.ActivityDefinition, error)
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

func (r *pgRepository) Facilities(ctx context.Context, ids []int64) ([]Facility, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := builder().
		Select("f.id", "f.name", "f.facility_type", "f.district_id", "d.name", "d.province_id", "f.parent_facility_id").
		From("facilities f").
		Join("districts d ON d.id = f.district_id").
		Where(sq.Eq{"f.id": ids}).
		OrderBy("f.id")
	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Facility
	for rows.Next() {
		var f Facility
		if err := rows.Scan(&f.ID, &f.Name, &f.FacilityType, &f.DistrictID, &f.DistrictName, &f.ProvinceID, &f.ParentFacilityID); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *pgRepository) FormEntries(ctx context.Context, q EntryQuery) ([]FormEntry, error) {
	if len(q.FacilityIDs) == 0 {
		return nil, nil
	}
	if !ValidEntityType(q.EntityType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, q.EntityType)
	}
	query := builder().
		Select("e.id", "e.facility_id", "e.project_id", "p.project_type", "e.reporting_period_id",
			"e.entity_type", "e.form_data", "e.approval_status", "e.metadata").
		From("form_data_entries e").
		Join("projects p ON p.id = e.project_id").
		Where(sq.Eq{
			"e.facility_id":         q.FacilityIDs,
			"e.reporting_period_id": q.PeriodID,
			"e.entity_type":         q.EntityType,
		}).
		OrderBy("e.facility_id", "e.id")
	if q.ProjectType != "" {
		query = query.Where(sq.Eq{"p.project_type": q.ProjectType})
	}
	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FormEntry
	for rows.Next() {
		var e FormEntry
		if err := rows.Scan(&e.ID, &e.FacilityID, &e.ProjectID, &e.ProjectType, &e.ReportingPeriodID,
			&e.EntityType, &e.FormData, &e.ApprovalStatus, &e.Metadata); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *pgRepository) Catalog(ctx context.Context, projectType, facilityType, entityType string) ([]aggregation.ActivityDefinition, error) {
	query := builder().
		Select("code", "name", "category", "COALESCE(subcategory, '')", "display_order",
			"is_section", "is_subcategory", "is_computed", "COALESCE(computation_formula, '')", "level").
		From("activity_catalogs").
		Where(sq.Eq{
			"project_type":  projectType,
			"facility_type": facilityType,
			"entity_type":   entityType,
			"is_active":     true,
		}).
		OrderBy("display_order", "code")
	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []aggregation.ActivityDefinition
	for rows.Next() {
		var d aggregation.ActivityDefinition
		if err := rows.Scan(&d.Code, &d.Name, &d.Category, &d.Subcategory, &d.DisplayOrder,
			&d.IsSection, &d.IsSubcategory, &d.IsComputed, &d.ComputationFormula, &d.Level); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrCatalogNotFound, projectType, facilityType, entityType)
	}
	return defs, nil
}

func (r *pgRepository) query(ctx context.Context, query sq.SelectBuilder) (pgx.Rows, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.pool.Query(ctx, sql, args...)
}
