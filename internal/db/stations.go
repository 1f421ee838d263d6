package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"grain-admin/internal/market"
)

const stationColumns = `
	s.code, s.name,
	ifnull(s.region_id, 0), ifnull(s.district_id, 0), ifnull(s.locality_id, 0),
	ifnull(r.name, ''), ifnull(d.name, ''), ifnull(l.name, ''),
	s.base
	  FROM stations s
	  LEFT JOIN regions r    ON r.id = s.region_id
	  LEFT JOIN districts d  ON d.id = s.district_id
	  LEFT JOIN localities l ON l.id = s.locality_id`

// StationByCode looks a station up by its rail code.
func (d *DB) StationByCode(ctx context.Context, code string) (*market.Station, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT `+stationColumns+` WHERE s.code = ?`, code)
	return scanStation(row)
}

// BaseStation finds the canonical hub station for a location. Zero IDs match
// unset references, so a station without a locality resolves against hubs
// that also have none.
func (d *DB) BaseStation(ctx context.Context, regionID, districtID, localityID int64) (*market.Station, error) {
	row := d.sql.QueryRowContext(ctx, `
		SELECT `+stationColumns+`
		 WHERE s.base = 1
		   AND s.region_id = ?
		   AND s.district_id = ?
		   AND ifnull(s.locality_id, 0) = ?
		 ORDER BY s.code LIMIT 1
	`, regionID, districtID, localityID)
	return scanStation(row)
}

// Stations returns every station for search indexing, code order.
func (d *DB) Stations(ctx context.Context) ([]market.Station, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT `+stationColumns+` ORDER BY s.code`)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	var stations []market.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stations: %w", err)
	}
	return stations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (*market.Station, error) {
	var st market.Station
	var base int
	err := row.Scan(
		&st.Code, &st.Name,
		&st.RegionID, &st.DistrictID, &st.LocalityID,
		&st.RegionName, &st.DistrictName, &st.LocalityName,
		&base,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, market.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan station: %w", err)
	}
	st.Base = base != 0
	return &st, nil
}
