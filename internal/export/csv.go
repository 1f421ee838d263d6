package export

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"
)

// CSVSaver writes rows as CSV with ruble amounts, the format admins feed
// into spreadsheets.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVSaver) Save(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	header := []string{
		"Класс", "Направление", "Элеватор", "Станция", "Код станции",
		"Партнёр", "Цена, руб.", "Франко-элеватор, руб.", "С доставкой, руб.", "Дата",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.QualityClass, r.Direction, r.Elevator, r.StationName, r.StationCode,
			r.Partner, rubles(r.Price), rublesPtr(r.Pickup), rublesPtr(r.Delivered), r.CreatedAt,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func rubles(kopecks int64) string {
	return decimal.New(kopecks, -2).StringFixed(2)
}

func rublesPtr(v *int64) string {
	if v == nil {
		return ""
	}
	return rubles(*v)
}
