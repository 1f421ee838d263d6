package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"
)

// Engine computes ranked market views over the bid and station directories.
// It is stateless across calls; the HTTP layer owns caching.
type Engine struct {
	bids     BidDirectory
	stations StationDirectory

	// Observe, when set, receives the duration of each computation phase.
	// The HTTP layer wires it to the metrics registry.
	Observe func(phase string, d time.Duration)
}

// NewEngine creates an engine over the given directories.
func NewEngine(bids BidDirectory, stations StationDirectory) *Engine {
	return &Engine{bids: bids, stations: stations}
}

func (e *Engine) observe(phase string, d time.Duration) {
	if e.Observe != nil {
		e.Observe(phase, d)
	}
}

// ComputeView builds the market view for p.
//
// With a destination station the engine resolves the destination's base
// station, fetches the bids already priced for it, and cross-checks them
// against the full active set: a bid without a tariff is salvaged when its
// own base station IS the destination base (shipping is free within one hub),
// otherwise it produces a diagnostic. Any diagnostic fails the whole view
// with a GenerationError carrying all of them.
//
// Without a destination the engine ranks all active bids of the direction.
func (e *Engine) ComputeView(ctx context.Context, p Params) (*View, error) {
	if p.StationCode == "" {
		start := time.Now()
		bids, err := e.bids.ActiveBids(ctx, p.Direction)
		e.observe("fetch_all", time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("fetch active bids: %w", err)
		}
		return e.rank(bids, "", "", p.RowsLimit), nil
	}

	baseTo, err := e.baseStationCode(ctx, p.StationCode)
	if err != nil {
		var unres *UnresolvableStationError
		if errors.As(err, &unres) {
			log.Printf("[MARKET] cannot resolve destination %s: %v", p.StationCode, err)
			return nil, &GenerationError{Diagnostics: []string{
				"Невозможно вычислить базовую станцию для станции " + p.StationCode,
			}}
		}
		return nil, err
	}

	start := time.Now()
	priced, err := e.bids.BidsPricedForDestination(ctx, baseTo, p.Direction)
	e.observe("fetch_priced", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch bids priced for %s: %w", baseTo, err)
	}
	log.Printf("[MARKET] %d bids priced for base station %s", len(priced), baseTo)

	start = time.Now()
	all, err := e.bids.ActiveBids(ctx, p.Direction)
	e.observe("fetch_all", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch active bids: %w", err)
	}

	start = time.Now()
	working, diags, err := e.crossCheck(ctx, priced, all, baseTo)
	e.observe("cross_check", time.Since(start))
	if err != nil {
		return nil, err
	}
	if len(diags) > 0 {
		log.Printf("[MARKET] %d bids cannot be priced for base station %s", len(diags), baseTo)
		return nil, &GenerationError{Diagnostics: diags}
	}

	start = time.Now()
	view := e.rank(working, p.StationCode, baseTo, p.RowsLimit)
	e.observe("enrich_sort", time.Since(start))
	return view, nil
}

// crossCheck walks the active bids missing from the priced set. Bids whose
// origin base station equals baseTo join the working set with the base code
// filled in; every other bid yields a diagnostic. Returned diagnostics keep
// the retrieval order of the active set.
func (e *Engine) crossCheck(ctx context.Context, priced, all []Bid, baseTo string) ([]Bid, []string, error) {
	pricedIDs := make(map[int64]struct{}, len(priced))
	for _, b := range priced {
		pricedIDs[b.ID] = struct{}{}
	}

	working := priced
	var diags []string
	for _, b := range all {
		if _, ok := pricedIDs[b.ID]; ok {
			continue
		}
		baseFrom, err := e.baseStationCode(ctx, b.Elevator.StationCode)
		if err != nil {
			var unres *UnresolvableStationError
			if !errors.As(err, &unres) {
				return nil, nil, err
			}
			diags = append(diags, fmt.Sprintf("Невозможно вычислить базовую станцию для станции %s (%s)",
				b.Elevator.StationCode, b.Elevator.StationName))
			continue
		}
		if baseFrom == baseTo {
			b.Elevator.BaseStationCode = baseFrom
			working = append(working, b)
		} else {
			diags = append(diags, fmt.Sprintf("Нет цены для перевозки из %s в %s", baseFrom, baseTo))
		}
	}
	return working, diags, nil
}

// baseStationCode resolves the canonical hub for the station with the given
// code: the base station registered for the station's region, district and
// locality.
func (e *Engine) baseStationCode(ctx context.Context, code string) (string, error) {
	st, err := e.stations.StationByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", &UnresolvableStationError{Code: code, Reason: "no such station"}
		}
		return "", fmt.Errorf("find station %s: %w", code, err)
	}
	if st.RegionID == 0 || st.DistrictID == 0 {
		return "", &UnresolvableStationError{Code: code, Reason: "region and/or district not set"}
	}
	base, err := e.stations.BaseStation(ctx, st.RegionID, st.DistrictID, st.LocalityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", &UnresolvableStationError{
				Code: code,
				Reason: fmt.Sprintf("no base station for location %q, %q, %q",
					st.RegionName, st.DistrictName, st.LocalityName),
			}
		}
		return "", fmt.Errorf("find base station for %s: %w", code, err)
	}
	return base.Code, nil
}

// rank enriches bids with resolved prices, partitions them by quality class
// in ascending class order, sorts each group by the direction's comparison
// price and applies the row limit.
func (e *Engine) rank(bids []Bid, destCode, baseToCode string, rowsLimit int) *View {
	rows := make([]Row, 0, len(bids))
	for _, b := range bids {
		row := Row{Bid: b}
		// Bids sitting at the destination hub keep their stated price as is;
		// everything else (and every buy bid) gets resolved prices.
		if baseToCode == "" || b.Elevator.BaseStationCode != baseToCode || b.Direction == Buy {
			if v, ok := PickupPrice(&row.Bid, destCode); ok {
				row.Pickup = &v
			}
			if v, ok := DeliveredPrice(&row.Bid, destCode); ok {
				row.Delivered = &v
			}
		}
		rows = append(rows, row)
	}

	byClass := make(map[string][]Row)
	classes := make([]string, 0)
	for _, r := range rows {
		if _, ok := byClass[r.QualityClass]; !ok {
			classes = append(classes, r.QualityClass)
		}
		byClass[r.QualityClass] = append(byClass[r.QualityClass], r)
	}
	sort.Strings(classes)

	groups := make([]ClassGroup, 0, len(classes))
	for _, class := range classes {
		g := byClass[class]
		if r, ok := pricingFor[g[0].Direction]; ok {
			sort.SliceStable(g, func(i, j int) bool {
				return r.less(
					ComparePrice(&g[i].Bid, destCode, baseToCode),
					ComparePrice(&g[j].Bid, destCode, baseToCode),
				)
			})
		}
		groups = append(groups, ClassGroup{Class: class, Rows: g})
	}

	return &View{Groups: truncate(groups, rowsLimit)}
}

// truncate applies the total row limit: groups are walked in order, the
// group that exhausts the limit is cut to fit, and later groups are dropped.
// A negative limit keeps everything.
func truncate(groups []ClassGroup, rowsLimit int) []ClassGroup {
	if rowsLimit < 0 {
		return groups
	}
	limited := make([]ClassGroup, 0, len(groups))
	taken := 0
	for _, g := range groups {
		if taken >= rowsLimit {
			break
		}
		if len(g.Rows) > rowsLimit-taken {
			g.Rows = g.Rows[:rowsLimit-taken]
			limited = append(limited, g)
			taken = rowsLimit
		} else {
			limited = append(limited, g)
			taken += len(g.Rows)
		}
	}
	return limited
}
