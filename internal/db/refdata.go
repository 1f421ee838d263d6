package db

import (
	"context"
	"fmt"

	"grain-admin/internal/market"
)

// Region is a top-level geographic reference entry.
type Region struct {
	ID   int64
	Name string
}

// District belongs to a region.
type District struct {
	ID       int64
	Name     string
	RegionID int64
}

// Locality belongs to a district.
type Locality struct {
	ID         int64
	Name       string
	DistrictID int64
}

// Partner is a trading counterparty.
type Partner struct {
	ID    int64
	Name  string
	INN   string
	Email string
}

// Regions returns all regions, name order.
func (d *DB) Regions(ctx context.Context) ([]Region, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, name FROM regions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	var out []Region
	for rows.Next() {
		var r Region
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Districts returns all districts, name order.
func (d *DB) Districts(ctx context.Context) ([]District, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, name, region_id FROM districts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query districts: %w", err)
	}
	defer rows.Close()

	var out []District
	for rows.Next() {
		var dd District
		if err := rows.Scan(&dd.ID, &dd.Name, &dd.RegionID); err != nil {
			return nil, fmt.Errorf("scan district: %w", err)
		}
		out = append(out, dd)
	}
	return out, rows.Err()
}

// Localities returns all localities, name order.
func (d *DB) Localities(ctx context.Context) ([]Locality, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, name, district_id FROM localities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query localities: %w", err)
	}
	defer rows.Close()

	var out []Locality
	for rows.Next() {
		var l Locality
		if err := rows.Scan(&l.ID, &l.Name, &l.DistrictID); err != nil {
			return nil, fmt.Errorf("scan locality: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Partners returns all partners, name order.
func (d *DB) Partners(ctx context.Context) ([]Partner, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, name, ifnull(inn, ''), ifnull(email, '') FROM partners ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query partners: %w", err)
	}
	defer rows.Close()

	var out []Partner
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.INN, &p.Email); err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Elevators returns all elevators with their station attached, name order.
// Service prices are not loaded here.
func (d *DB) Elevators(ctx context.Context) ([]market.Elevator, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT e.id, e.name, s.code, s.name
		  FROM elevators e
		  JOIN stations s ON s.code = e.station_code
		 ORDER BY e.name
	`)
	if err != nil {
		return nil, fmt.Errorf("query elevators: %w", err)
	}
	defer rows.Close()

	var out []market.Elevator
	for rows.Next() {
		var e market.Elevator
		if err := rows.Scan(&e.ID, &e.Name, &e.StationCode, &e.StationName); err != nil {
			return nil, fmt.Errorf("scan elevator: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
