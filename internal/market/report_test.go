package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

// fakeDirectory serves bids and stations from memory, standing in for the
// SQLite store. Tariffs are keyed (from station code, to base station code);
// the priced fetch attaches their figures the way the store's join does.
type fakeDirectory struct {
	bids       []Bid
	stations   map[string]*Station
	tariffs    map[[2]string][2]*int64 // {price, priceNds}
	failActive error
}

func (f *fakeDirectory) ActiveBids(_ context.Context, dir Direction) ([]Bid, error) {
	if f.failActive != nil {
		return nil, f.failActive
	}
	var out []Bid
	for _, b := range f.bids {
		if b.Direction == dir {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeDirectory) BidsPricedForDestination(_ context.Context, baseCode string, dir Direction) ([]Bid, error) {
	var out []Bid
	for _, b := range f.bids {
		if b.Direction != dir {
			continue
		}
		tp, ok := f.tariffs[[2]string{b.Elevator.StationCode, baseCode}]
		if !ok {
			continue
		}
		b.TransportPrice, b.TransportPriceNds = tp[0], tp[1]
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeDirectory) StationByCode(_ context.Context, code string) (*Station, error) {
	st, ok := f.stations[code]
	if !ok {
		return nil, ErrNotFound
	}
	return st, nil
}

func (f *fakeDirectory) BaseStation(_ context.Context, regionID, districtID, localityID int64) (*Station, error) {
	for _, st := range f.stations {
		if st.Base && st.RegionID == regionID && st.DistrictID == districtID && st.LocalityID == localityID {
			return st, nil
		}
	}
	return nil, ErrNotFound
}

// testGeo builds the geography shared by the destination tests:
//
//	100000 Лиски          region 1 / district 1, hub 100001
//	100002 Давыдовка      region 1 / district 1 (same hub as Лиски)
//	200000 Таловая        region 2 / district 2, hub 200001
//	300000 Абрамовка      region 3, district missing (unresolvable)
//	400000 Бутурлиновка   region 4 / district 4, no hub registered
func testGeo() *fakeDirectory {
	return &fakeDirectory{
		stations: map[string]*Station{
			"100000": {Code: "100000", Name: "Лиски", RegionID: 1, DistrictID: 1, RegionName: "Воронежская", DistrictName: "Лискинский"},
			"100001": {Code: "100001", Name: "Лиски-Узловая", RegionID: 1, DistrictID: 1, Base: true},
			"100002": {Code: "100002", Name: "Давыдовка", RegionID: 1, DistrictID: 1},
			"200000": {Code: "200000", Name: "Таловая", RegionID: 2, DistrictID: 2},
			"200001": {Code: "200001", Name: "Таловая-Сорт.", RegionID: 2, DistrictID: 2, Base: true},
			"300000": {Code: "300000", Name: "Абрамовка", RegionID: 3},
			"400000": {Code: "400000", Name: "Бутурлиновка", RegionID: 4, DistrictID: 4, RegionName: "Воронежская", DistrictName: "Бутурлиновский"},
		},
		tariffs: map[[2]string][2]*int64{},
	}
}

func sellAt(id int64, station, class string, price int64) Bid {
	return Bid{
		ID:           id,
		Direction:    Sell,
		TaxMode:      TaxExcluded,
		Price:        price,
		QualityClass: class,
		Elevator: Elevator{
			ID:          id,
			Name:        "Элеватор-" + station,
			StationCode: station,
			StationName: station,
		},
	}
}

func TestComputeView_NoDestination_SellAscendingByPickup(t *testing.T) {
	dir := testGeo()
	dir.bids = []Bid{
		sellAt(1, "200000", "3", 10_000),
		sellAt(2, "200000", "3", 9_000),
	}
	eng := NewEngine(dir, dir)

	view, err := eng.ComputeView(context.Background(), Params{Direction: Sell, RowsLimit: -1})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(view.Groups))

	rows := view.Groups[0].Rows
	assert.Equal(t, 2, len(rows))
	check.Equal(t, int64(2), rows[0].ID) // 9_000 before 10_000
	check.Equal(t, int64(1), rows[1].ID)
}

func TestComputeView_NoDestination_EnrichmentLeavesDeliveredUnset(t *testing.T) {
	dir := testGeo()
	dir.bids = []Bid{sellAt(1, "200000", "3", 10_000)}
	eng := NewEngine(dir, dir)

	view, err := eng.ComputeView(context.Background(), Params{Direction: Sell, RowsLimit: -1})
	assert.Nil(t, err)

	row := view.Groups[0].Rows[0]
	assert.NotNil(t, row.Pickup)
	check.Equal(t, int64(10_000), *row.Pickup)
	check.Nil(t, row.Delivered) // undefined without a destination, never zero
}

func TestComputeView_GroupsAreAPartitionInClassOrder(t *testing.T) {
	dir := testGeo()
	dir.bids = []Bid{
		sellAt(1, "200000", "4", 10_000),
		sellAt(2, "200000", "3", 11_000),
		sellAt(3, "200000", "3к", 12_000),
		sellAt(4, "200000", "3", 13_000),
	}
	eng := NewEngine(dir, dir)

	view, err := eng.ComputeView(context.Background(), Params{Direction: Sell, RowsLimit: -1})
	assert.Nil(t, err)
	assert.Equal(t, 3, len(view.Groups))

	check.Equal(t, "3", view.Groups[0].Class)
	check.Equal(t, "3к", view.Groups[1].Class)
	check.Equal(t, "4", view.Groups[2].Class)

	seen := map[int64]int{}
	for _, g := range view.Groups {
		for _, r := range g.Rows {
			check.Equal(t, r.QualityClass, g.Class)
			seen[r.ID]++
		}
	}
	check.Equal(t, 4, view.RowCount())
	for id := int64(1); id <= 4; id++ {
		check.Equal(t, 1, seen[id])
	}
}

func TestComputeView_SortIsStableOnEqualPrices(t *testing.T) {
	dir := testGeo()
	dir.bids = []Bid{
		sellAt(1, "200000", "3", 10_000),
		sellAt(2, "200000", "3", 10_000),
		sellAt(3, "200000", "3", 10_000),
		sellAt(4, "200000", "3", 9_000),
	}
	eng := NewEngine(dir, dir)

	view, err := eng.ComputeView(context.Background(), Params{Direction: Sell, RowsLimit: -1})
	assert.Nil(t, err)

	rows := view.Groups[0].Rows
	assert.Equal(t, 4, len(rows))
	check.Equal(t, int64(4), rows[0].ID)
	check.Equal(t, int64(1), rows[1].ID) // ties keep retrieval order
	check.Equal(t, int64(2), rows[2].ID)
	check.Equal(t, int64(3), rows[3].ID)
}

func TestComputeView_TruncationWalksGroupsInOrder(t *testing.T) {
	dir := testGeo()
	dir.bids = []Bid{
		sellAt(1, "200000", "1", 10_000),
		sellAt(2, "200000", "1", 11_000),
		sellAt(3, "200000", "2", 10_000),
		sellAt(4, "200000", "2", 11_000),
		sellAt(5, "200000", "2", 12_000),
		sellAt(6, "200000", "2", 13_000),
		sellAt(7, "200000", "3", 10_000),
	}
	eng := NewEngine(dir, dir)

	// Limit 3 over group sizes [2, 4, 1]: full first group, second cut to
	// one row, third omitted.
	view, err := eng.ComputeView(context.Background(), Params{Direction: Sell, RowsLimit: 3})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(view.Groups))
	check.Equal(t, 2, len(view.Groups[0].Rows))
	check.Equal(t, 1, len(view.Groups[1].Rows))
	check.Equal(t, 3, view.RowCount())

	// The cut group is a prefix of its untruncated self.
	full, err := eng.ComputeView(context.Background(), Params{Direction: Sell, RowsLimit: -1})
	assert.Nil(t, err)
	check.Equal(t, full.Groups[1].Rows[0].ID, view.Groups[1].Rows[0].ID)

	// min(N, total) law at the edges.
	all, err := eng.ComputeView(context.Background(), Params{Direction: Sell, RowsLimit: 100})
	assert.Nil(t, err)
	check.Equal(t, 7, all.RowCount())

	none, err := eng.ComputeView(context.Background(), Params{Direction: Sell, RowsLimit: 0})
	assert.Nil(t, err)
	check.Equal(t, 0, none.RowCount())
	check.Equal(t, 0, len(none.Groups))
}

func TestComputeView_MissingTariffFailsWithDiagnostic(t *testing.T) {
	dir := testGeo()
	dir.bids = []Bid{sellAt(1, "200000", "3", 10_000)}
	eng := NewEngine(dir, dir)

	_, err := eng.ComputeView(context.Background(), Params{StationCode: "100000", Direction: Sell, RowsLimit: -1})

	var genErr *GenerationError
	assert.True(t, errors.As(err, &genErr))
	assert.Equal(t, 1, len(genErr.Diagnostics))
	check.Equal(t, "Нет цены для перевозки из 200001 в 100001", genErr.Diagnostics[0])
}

func TestComputeView_UnresolvableOriginNamesTheStation(t *testing.T) {
	dir := testGeo()
	b := sellAt(1, "300000", "3", 10_000)
	b.Elevator.StationName = "Абрамовка"
	dir.bids = []Bid{b}
	eng := NewEngine(dir, dir)

	_, err := eng.ComputeView(context.Background(), Params{StationCode: "100000", Direction: Sell, RowsLimit: -1})

	var genErr *GenerationError
	assert.True(t, errors.As(err, &genErr))
	assert.Equal(t, 1, len(genErr.Diagnostics))
	check.Equal(t, "Невозможно вычислить базовую станцию для станции 300000 (Абрамовка)", genErr.Diagnostics[0])
}

func TestComputeView_UnresolvableDestination(t *testing.T) {
	dir := testGeo()
	eng := NewEngine(dir, dir)

	for _, code := range []string{"999999", "300000", "400000"} {
		_, err := eng.ComputeView(context.Background(), Params{StationCode: code, Direction: Sell, RowsLimit: -1})

		var genErr *GenerationError
		assert.True(t, errors.As(err, &genErr))
		assert.Equal(t, 1, len(genErr.Diagnostics))
		check.Equal(t, "Невозможно вычислить базовую станцию для станции "+code, genErr.Diagnostics[0])
	}
}

func TestComputeView_SalvagesBidAtDestinationHub(t *testing.T) {
	dir := testGeo()
	// Давыдовка shares the Лиски hub, so the bid ships for free and needs no
	// tariff on record.
	dir.bids = []Bid{sellAt(1, "100002", "3", 10_000)}
	eng := NewEngine(dir, dir)

	view, err := eng.ComputeView(context.Background(), Params{StationCode: "100000", Direction: Sell, RowsLimit: -1})
	assert.Nil(t, err)
	assert.Equal(t, 1, view.RowCount())

	row := view.Groups[0].Rows[0]
	check.Equal(t, int64(1), row.ID)
	check.Equal(t, "100001", row.Elevator.BaseStationCode)
	// At the hub the stated price stands as is: no enrichment, raw compare.
	check.Nil(t, row.Pickup)
	check.Nil(t, row.Delivered)
	check.Equal(t, int64(10_000), ComparePrice(&row.Bid, "100000", "100001"))
}

func TestComputeView_AllOrNothingOnDiagnostics(t *testing.T) {
	dir := testGeo()
	priced := sellAt(1, "200000", "3", 10_000)
	dir.tariffs[[2]string{"200000", "100001"}] = [2]*int64{ptr(2_000), nil}
	salvageable := sellAt(2, "100002", "3", 9_000)
	broken := sellAt(3, "400000", "3", 8_000)
	broken.Elevator.StationName = "Бутурлиновка"
	dir.bids = []Bid{priced, salvageable, broken}
	eng := NewEngine(dir, dir)

	_, err := eng.ComputeView(context.Background(), Params{StationCode: "100000", Direction: Sell, RowsLimit: -1})

	// One unpriceable bid sinks the whole view even though two others are fine.
	var genErr *GenerationError
	assert.True(t, errors.As(err, &genErr))
	assert.Equal(t, 1, len(genErr.Diagnostics))
	check.Equal(t, "Невозможно вычислить базовую станцию для станции 400000 (Бутурлиновка)", genErr.Diagnostics[0])
}

func TestComputeView_WithDestination_SellRankedByDelivered(t *testing.T) {
	dir := testGeo()
	far := sellAt(1, "200000", "3", 9_000) // delivered 9_000 + 2_000 = 11_000
	dir.tariffs[[2]string{"200000", "100001"}] = [2]*int64{ptr(2_000), nil}
	local := sellAt(2, "100002", "3", 10_500) // at the hub, compares at 10_500
	dir.bids = []Bid{far, local}
	eng := NewEngine(dir, dir)

	view, err := eng.ComputeView(context.Background(), Params{StationCode: "100000", Direction: Sell, RowsLimit: -1})
	assert.Nil(t, err)

	rows := view.Groups[0].Rows
	assert.Equal(t, 2, len(rows))
	check.Equal(t, int64(2), rows[0].ID) // 10_500 beats 11_000
	check.Equal(t, int64(1), rows[1].ID)

	// The shipped bid carries both resolved prices.
	assert.NotNil(t, rows[1].Pickup)
	assert.NotNil(t, rows[1].Delivered)
	check.Equal(t, int64(9_000), *rows[1].Pickup)
	check.Equal(t, int64(11_000), *rows[1].Delivered)
}

func TestComputeView_BuyWithDestination_DescendingByPickup(t *testing.T) {
	dir := testGeo()
	b1 := Bid{ID: 1, Direction: Buy, TaxMode: TaxExcluded, Price: 900_000, QualityClass: "3",
		Elevator: Elevator{StationCode: "200000", StationName: "Таловая"}}
	b2 := Bid{ID: 2, Direction: Buy, TaxMode: TaxExcluded, Price: 850_000, QualityClass: "3",
		Elevator: Elevator{StationCode: "200000", StationName: "Таловая"}}
	dir.bids = []Bid{b1, b2}
	dir.tariffs[[2]string{"200000", "100001"}] = [2]*int64{ptr(100_000), nil}
	eng := NewEngine(dir, dir)

	view, err := eng.ComputeView(context.Background(), Params{StationCode: "100000", Direction: Buy, RowsLimit: -1})
	assert.Nil(t, err)

	rows := view.Groups[0].Rows
	assert.Equal(t, 2, len(rows))
	// Pickups are 800_000 and 750_000: best buyer offer first.
	check.Equal(t, int64(1), rows[0].ID)
	check.Equal(t, int64(2), rows[1].ID)
	assert.NotNil(t, rows[0].Pickup)
	check.Equal(t, int64(800_000), *rows[0].Pickup)
}

func TestComputeView_BuyDeliveredAlwaysDefined(t *testing.T) {
	dir := testGeo()
	dir.bids = []Bid{{ID: 1, Direction: Buy, TaxMode: TaxExcluded, Price: 900_000, QualityClass: "3",
		Elevator: Elevator{StationCode: "200000"}}}
	eng := NewEngine(dir, dir)

	view, err := eng.ComputeView(context.Background(), Params{Direction: Buy, RowsLimit: -1})
	assert.Nil(t, err)

	row := view.Groups[0].Rows[0]
	assert.NotNil(t, row.Delivered)
	check.Equal(t, int64(900_000), *row.Delivered)
	check.Nil(t, row.Pickup) // undefined without a destination
}

func TestComputeView_DirectionsDoNotMix(t *testing.T) {
	dir := testGeo()
	dir.bids = []Bid{
		sellAt(1, "200000", "3", 10_000),
		{ID: 2, Direction: Buy, TaxMode: TaxExcluded, Price: 900_000, QualityClass: "3",
			Elevator: Elevator{StationCode: "200000"}},
	}
	eng := NewEngine(dir, dir)

	view, err := eng.ComputeView(context.Background(), Params{Direction: Sell, RowsLimit: -1})
	assert.Nil(t, err)
	assert.Equal(t, 1, view.RowCount())
	check.Equal(t, int64(1), view.Groups[0].Rows[0].ID)
}

func TestComputeView_StorageErrorIsNotAGenerationError(t *testing.T) {
	dir := testGeo()
	dir.failActive = errors.New("disk on fire")
	eng := NewEngine(dir, dir)

	_, err := eng.ComputeView(context.Background(), Params{Direction: Sell, RowsLimit: -1})
	assert.Error(t, err)

	var genErr *GenerationError
	check.False(t, errors.As(err, &genErr))
}

func TestComputeView_ObservesPhases(t *testing.T) {
	dir := testGeo()
	dir.bids = []Bid{sellAt(1, "100002", "3", 10_000)}
	eng := NewEngine(dir, dir)

	var phases []string
	eng.Observe = func(phase string, _ time.Duration) { phases = append(phases, phase) }

	_, err := eng.ComputeView(context.Background(), Params{StationCode: "100000", Direction: Sell, RowsLimit: -1})
	assert.Nil(t, err)
	check.Equal(t, []string{"fetch_priced", "fetch_all", "cross_check", "enrich_sort"}, phases)

	phases = nil
	_, err = eng.ComputeView(context.Background(), Params{Direction: Sell, RowsLimit: -1})
	assert.Nil(t, err)
	check.Equal(t, []string{"fetch_all"}, phases)
}
