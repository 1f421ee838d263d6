package market

import (
	"context"
	"fmt"
	"time"
)

// Direction says which side of the trade a bid is on.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// ParseDirection validates a direction string coming from the HTTP layer.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Buy, Sell:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown bid direction %q", s)
}

// TaxMode says whether quoted transport figures include НДС.
type TaxMode string

const (
	TaxExcluded TaxMode = "EXCLUDED"
	TaxIncluded TaxMode = "INCLUDED"
)

// ParseTaxMode validates a tax mode string coming from the HTTP layer.
func ParseTaxMode(s string) (TaxMode, error) {
	switch TaxMode(s) {
	case TaxExcluded, TaxIncluded:
		return TaxMode(s), nil
	}
	return "", fmt.Errorf("unknown tax mode %q", s)
}

// Elevator is the loading facility a bid ships from. BaseStationCode is the
// code of the canonical hub for the elevator's location; it is empty when the
// hub could not be resolved from the station's geography.
type Elevator struct {
	ID              int64
	Name            string
	StationCode     string
	StationName     string
	BaseStationCode string
	ServicePrices   []int64 // loading tariffs in kopecks, insertion order
}

// Bid is one trade offer. All money values are kopecks per tonne.
// TransportPrice/TransportPriceNds carry the tariff from the bid's own
// station to the requested destination base station; they are attached only
// by the destination-priced fetch and stay nil otherwise.
type Bid struct {
	ID                int64
	Direction         Direction
	TaxMode           TaxMode
	Price             int64
	TransportPrice    *int64
	TransportPriceNds *int64
	QualityClass      string
	Partner           string
	Elevator          Elevator
	CreatedAt         time.Time
}

// Station is a rail location. RegionID/DistrictID/LocalityID are zero when
// the corresponding reference is not set.
type Station struct {
	Code         string
	Name         string
	RegionID     int64
	DistrictID   int64
	LocalityID   int64
	RegionName   string
	DistrictName string
	LocalityName string
	Base         bool
}

// Row is a bid enriched with the resolved prices for presentation. A nil
// price means the value is undefined in the requested context, not zero.
type Row struct {
	Bid
	Pickup    *int64 // FCA terms: price at the origin, loading included
	Delivered *int64 // CPT terms: price with transport to the destination
}

// ClassGroup is one quality-class bucket of the market table, rows already
// ranked for the requested direction.
type ClassGroup struct {
	Class string
	Rows  []Row
}

// View is a computed market table: quality-class groups in ascending class
// order. It is built fresh per request and never stored.
type View struct {
	Groups []ClassGroup
}

// RowCount returns the total number of rows across all groups.
func (v *View) RowCount() int {
	n := 0
	for _, g := range v.Groups {
		n += len(g.Rows)
	}
	return n
}

// Params selects what market view to compute. An empty StationCode means the
// market-wide view with no destination. A negative RowsLimit means unlimited.
type Params struct {
	StationCode string
	Direction   Direction
	TaxMode     TaxMode
	RowsLimit   int
}

// BidDirectory supplies active bids from storage. Both calls must read from
// a consistent snapshot within one view computation.
type BidDirectory interface {
	// ActiveBids returns all non-archived active bids of the direction.
	ActiveBids(ctx context.Context, dir Direction) ([]Bid, error)
	// BidsPricedForDestination returns the active bids of the direction that
	// have a transport tariff from their own station to the given destination
	// base station, with the tariff figures attached.
	BidsPricedForDestination(ctx context.Context, baseStationCode string, dir Direction) ([]Bid, error)
}

// StationDirectory resolves stations and their geographic base stations.
// Lookups return ErrNotFound when no station matches.
type StationDirectory interface {
	StationByCode(ctx context.Context, code string) (*Station, error)
	BaseStation(ctx context.Context, regionID, districtID, localityID int64) (*Station, error)
}
