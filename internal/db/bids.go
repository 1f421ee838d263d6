package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"grain-admin/internal/market"
)

// Bids come out ordered by id so equally priced rows keep their insertion
// order through the stable ranking sort.
const bidColumns = `
	b.id, b.direction, b.nds, b.price, b.quality_class, b.created_at,
	e.id, e.name, s.code, s.name,
	(SELECT h.code FROM stations h
	  WHERE h.base = 1
	    AND h.region_id = s.region_id
	    AND h.district_id = s.district_id
	    AND ifnull(h.locality_id, 0) = ifnull(s.locality_id, 0)
	  ORDER BY h.code LIMIT 1),
	ifnull(p.name, '')`

// ActiveBids returns every non-archived active bid of the direction, with the
// elevator, its station and the precomputed base station code attached.
func (d *DB) ActiveBids(ctx context.Context, dir market.Direction) ([]market.Bid, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT `+bidColumns+`
		  FROM bids b
		  JOIN elevators e ON e.id = b.elevator_id
		  JOIN stations s  ON s.code = e.station_code
		  LEFT JOIN partners p ON p.id = b.partner_id
		 WHERE b.direction = ? AND b.is_active = 1 AND b.archive_date IS NULL
		 ORDER BY b.id
	`, string(dir))
	if err != nil {
		return nil, fmt.Errorf("query active bids: %w", err)
	}
	defer rows.Close()

	bids, err := scanBids(rows, false)
	if err != nil {
		return nil, err
	}
	if err := d.attachServicePrices(ctx, bids); err != nil {
		return nil, err
	}
	return bids, nil
}

// BidsPricedForDestination returns the active bids of the direction whose own
// station has a transport tariff to the destination base station. The tariff
// figures ride along on the bid.
func (d *DB) BidsPricedForDestination(ctx context.Context, baseStationCode string, dir market.Direction) ([]market.Bid, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT `+bidColumns+`, tp.price, tp.price_nds
		  FROM bids b
		  JOIN elevators e ON e.id = b.elevator_id
		  JOIN stations s  ON s.code = e.station_code
		  JOIN transportation_prices tp
		    ON tp.station_from = s.code AND tp.station_to = ?
		  LEFT JOIN partners p ON p.id = b.partner_id
		 WHERE b.direction = ? AND b.is_active = 1 AND b.archive_date IS NULL
		 ORDER BY b.id
	`, baseStationCode, string(dir))
	if err != nil {
		return nil, fmt.Errorf("query priced bids: %w", err)
	}
	defer rows.Close()

	bids, err := scanBids(rows, true)
	if err != nil {
		return nil, err
	}
	if err := d.attachServicePrices(ctx, bids); err != nil {
		return nil, err
	}
	return bids, nil
}

func scanBids(rows *sql.Rows, withTariff bool) ([]market.Bid, error) {
	var bids []market.Bid
	for rows.Next() {
		var (
			b         market.Bid
			dir, tax  string
			createdAt string
			baseCode  sql.NullString
			tp, tpNds sql.NullInt64
		)
		dest := []any{
			&b.ID, &dir, &tax, &b.Price, &b.QualityClass, &createdAt,
			&b.Elevator.ID, &b.Elevator.Name, &b.Elevator.StationCode, &b.Elevator.StationName,
			&baseCode, &b.Partner,
		}
		if withTariff {
			dest = append(dest, &tp, &tpNds)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		b.Direction = market.Direction(dir)
		b.TaxMode = market.TaxMode(tax)
		b.Elevator.BaseStationCode = baseCode.String
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			b.CreatedAt = t
		}
		if tp.Valid {
			v := tp.Int64
			b.TransportPrice = &v
		}
		if tpNds.Valid {
			v := tpNds.Int64
			b.TransportPriceNds = &v
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bids: %w", err)
	}
	return bids, nil
}

// attachServicePrices loads the loading tariffs for every elevator referenced
// by the bids, preserving their stored order.
func (d *DB) attachServicePrices(ctx context.Context, bids []market.Bid) error {
	if len(bids) == 0 {
		return nil
	}
	seen := make(map[int64]bool)
	var ids []any
	for _, b := range bids {
		if !seen[b.Elevator.ID] {
			seen[b.Elevator.ID] = true
			ids = append(ids, b.Elevator.ID)
		}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := d.sql.QueryContext(ctx, `
		SELECT elevator_id, price
		  FROM elevator_service_prices
		 WHERE elevator_id IN (`+placeholders+`)
		 ORDER BY elevator_id, ordinal, id
	`, ids...)
	if err != nil {
		return fmt.Errorf("query service prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[int64][]int64)
	for rows.Next() {
		var elevatorID, price int64
		if err := rows.Scan(&elevatorID, &price); err != nil {
			return fmt.Errorf("scan service price: %w", err)
		}
		prices[elevatorID] = append(prices[elevatorID], price)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate service prices: %w", err)
	}
	for i := range bids {
		bids[i].Elevator.ServicePrices = prices[bids[i].Elevator.ID]
	}
	return nil
}
