package db

import (
	"context"
	"fmt"
	"time"

	"grain-admin/internal/market"
)

// nullID maps a zero reference ID to SQL NULL.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// InsertRegion adds a region and returns its ID.
func (d *DB) InsertRegion(ctx context.Context, name string) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `INSERT INTO regions (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert region: %w", err)
	}
	return res.LastInsertId()
}

// InsertDistrict adds a district under a region and returns its ID.
func (d *DB) InsertDistrict(ctx context.Context, name string, regionID int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO districts (name, region_id) VALUES (?, ?)`, name, regionID)
	if err != nil {
		return 0, fmt.Errorf("insert district: %w", err)
	}
	return res.LastInsertId()
}

// InsertLocality adds a locality under a district and returns its ID.
func (d *DB) InsertLocality(ctx context.Context, name string, districtID int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO localities (name, district_id) VALUES (?, ?)`, name, districtID)
	if err != nil {
		return 0, fmt.Errorf("insert locality: %w", err)
	}
	return res.LastInsertId()
}

// InsertPartner adds a trading partner and returns its ID.
func (d *DB) InsertPartner(ctx context.Context, name, inn, email string) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO partners (name, inn, email) VALUES (?, ?, ?)`, name, inn, email)
	if err != nil {
		return 0, fmt.Errorf("insert partner: %w", err)
	}
	return res.LastInsertId()
}

// InsertStation adds a station. Zero reference IDs are stored as NULL.
func (d *DB) InsertStation(ctx context.Context, st market.Station) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO stations (code, name, region_id, district_id, locality_id, base)
		VALUES (?, ?, ?, ?, ?, ?)
	`, st.Code, st.Name, nullID(st.RegionID), nullID(st.DistrictID), nullID(st.LocalityID), st.Base)
	if err != nil {
		return fmt.Errorf("insert station: %w", err)
	}
	return nil
}

// InsertElevator adds an elevator at a station and returns its ID.
func (d *DB) InsertElevator(ctx context.Context, name, stationCode string) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO elevators (name, station_code) VALUES (?, ?)`, name, stationCode)
	if err != nil {
		return 0, fmt.Errorf("insert elevator: %w", err)
	}
	return res.LastInsertId()
}

// InsertServicePrice appends a loading tariff to an elevator's price list.
func (d *DB) InsertServicePrice(ctx context.Context, elevatorID, price int64, ordinal int) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO elevator_service_prices (elevator_id, price, ordinal) VALUES (?, ?, ?)`,
		elevatorID, price, ordinal)
	if err != nil {
		return fmt.Errorf("insert service price: %w", err)
	}
	return nil
}

// NewBid is the insert payload for a bid. A zero PartnerID stores NULL and a
// zero CreatedAt defaults to the current time.
type NewBid struct {
	Direction    market.Direction
	TaxMode      market.TaxMode
	Price        int64
	QualityClass string
	ElevatorID   int64
	PartnerID    int64
	CreatedAt    time.Time
}

// InsertBid adds an active bid and returns its ID.
func (d *DB) InsertBid(ctx context.Context, nb NewBid) (int64, error) {
	created := nb.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := d.sql.ExecContext(ctx, `
		INSERT INTO bids (direction, nds, price, quality_class, elevator_id, partner_id, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`, string(nb.Direction), string(nb.TaxMode), nb.Price, nb.QualityClass,
		nb.ElevatorID, nullID(nb.PartnerID), created.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert bid: %w", err)
	}
	return res.LastInsertId()
}

// ArchiveBid stamps a bid with an archive date, removing it from the market.
func (d *DB) ArchiveBid(ctx context.Context, id int64) error {
	_, err := d.sql.ExecContext(ctx,
		`UPDATE bids SET archive_date = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("archive bid: %w", err)
	}
	return nil
}

// DeactivateBid hides a bid without archiving it.
func (d *DB) DeactivateBid(ctx context.Context, id int64) error {
	_, err := d.sql.ExecContext(ctx, `UPDATE bids SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate bid: %w", err)
	}
	return nil
}

// InsertTransportPrice records (or replaces) the rail tariff between two
// stations. Nil figures store NULL.
func (d *DB) InsertTransportPrice(ctx context.Context, from, to string, price, priceNds *int64) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT OR REPLACE INTO transportation_prices (station_from, station_to, price, price_nds)
		VALUES (?, ?, ?, ?)
	`, from, to, price, priceNds)
	if err != nil {
		return fmt.Errorf("insert transport price: %w", err)
	}
	return nil
}
