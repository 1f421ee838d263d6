// Package export serializes computed market views into download formats.
// Saver implementations are injected by format name so the HTTP layer only
// depends on the interface.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"grain-admin/internal/market"
)

// Row is the flat record written to download files, one per market table
// row. Money stays in kopecks; nil means the price is undefined in the
// requested context.
type Row struct {
	QualityClass string `json:"quality_class" parquet:"quality_class"`
	BidID        int64  `json:"bid_id" parquet:"bid_id"`
	Direction    string `json:"direction" parquet:"direction"`
	Elevator     string `json:"elevator" parquet:"elevator"`
	StationCode  string `json:"station_code" parquet:"station_code"`
	StationName  string `json:"station_name" parquet:"station_name"`
	Partner      string `json:"partner,omitempty" parquet:"partner,optional"`
	Price        int64  `json:"price" parquet:"price"`
	Pickup       *int64 `json:"pickup,omitempty" parquet:"pickup,optional"`
	Delivered    *int64 `json:"delivered,omitempty" parquet:"delivered,optional"`
	CreatedAt    string `json:"created_at" parquet:"created_at"`
}

// Saver writes flattened market rows in one download format.
type Saver interface {
	Save(w io.Writer, rows []Row) error
	Extension() string
	ContentType() string
}

// ForFormat returns the saver for a format name, or nil when the format is
// not supported. An empty format means CSV.
func ForFormat(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv", "":
		return CSVSaver{}
	case "json":
		return JSONSaver{}
	case "parquet":
		return ParquetSaver{}
	}
	return nil
}

// Flatten walks the view in display order: class groups ascending, rows as
// ranked.
func Flatten(v *market.View) []Row {
	var rows []Row
	for _, g := range v.Groups {
		for _, r := range g.Rows {
			rows = append(rows, Row{
				QualityClass: g.Class,
				BidID:        r.ID,
				Direction:    string(r.Direction),
				Elevator:     r.Elevator.Name,
				StationCode:  r.Elevator.StationCode,
				StationName:  r.Elevator.StationName,
				Partner:      r.Partner,
				Price:        r.Price,
				Pickup:       r.Pickup,
				Delivered:    r.Delivered,
				CreatedAt:    r.CreatedAt.Format("2006-01-02"),
			})
		}
	}
	return rows
}

// Filename builds the attachment name for a download, e.g.
// "market-sell-2026-08-21.csv".
func Filename(dir market.Direction, ext string, now time.Time) string {
	return fmt.Sprintf("market-%s-%s.%s",
		strings.ToLower(string(dir)), now.Format("2006-01-02"), ext)
}
