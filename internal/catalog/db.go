package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// OpenDB connects to the reference database holding the catalog tables.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// LoadDB reads all five tables once. The hub never writes to this database;
// the catalog stays fixed for the life of the process.
func LoadDB(ctx context.Context, db *sql.DB) (Catalog, error) {
	var c Catalog
	var err error

	if c.EscalationLevels, err = queryRows(ctx, db,
		`SELECT id, name FROM escalation_levels ORDER BY id`,
		func(rows *sql.Rows) (EscalationLevel, error) {
			var v EscalationLevel
			return v, rows.Scan(&v.ID, &v.Name)
		}); err != nil {
		return Catalog{}, fmt.Errorf("load escalation levels: %w", err)
	}
	if c.Skills, err = queryRows(ctx, db,
		`SELECT id, name FROM skills ORDER BY id`,
		func(rows *sql.Rows) (Skill, error) {
			var v Skill
			return v, rows.Scan(&v.ID, &v.Name)
		}); err != nil {
		return Catalog{}, fmt.Errorf("load skills: %w", err)
	}
	if c.Sites, err = queryRows(ctx, db,
		`SELECT id, name FROM sites ORDER BY id`,
		func(rows *sql.Rows) (Site, error) {
			var v Site
			return v, rows.Scan(&v.ID, &v.Name)
		}); err != nil {
		return Catalog{}, fmt.Errorf("load sites: %w", err)
	}
	if c.Assets, err = queryRows(ctx, db,
		`SELECT id, site_id, display_name, model, region_name FROM assets ORDER BY id`,
		func(rows *sql.Rows) (Asset, error) {
			var v Asset
			return v, rows.Scan(&v.ID, &v.SiteID, &v.DisplayName, &v.Model, &v.RegionName)
		}); err != nil {
		return Catalog{}, fmt.Errorf("load assets: %w", err)
	}
	if c.Alarms, err = queryRows(ctx, db,
		`SELECT alarm_id, code, description, COALESCE(legacy_id, '') FROM alarms ORDER BY alarm_id`,
		func(rows *sql.Rows) (Alarm, error) {
			var v Alarm
			return v, rows.Scan(&v.AlarmID, &v.Code, &v.Description, &v.LegacyID)
		}); err != nil {
		return Catalog{}, fmt.Errorf("load alarms: %w", err)
	}

	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func queryRows[T any](ctx context.Context, db *sql.DB, q string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
