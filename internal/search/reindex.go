package search

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"grain-admin/internal/db"
	"grain-admin/internal/logger"
	"grain-admin/internal/market"
)

// Source supplies the reference data the mirror is rebuilt from.
type Source interface {
	Stations(ctx context.Context) ([]market.Station, error)
	Partners(ctx context.Context) ([]db.Partner, error)
	Elevators(ctx context.Context) ([]market.Elevator, error)
	Regions(ctx context.Context) ([]db.Region, error)
	Districts(ctx context.Context) ([]db.District, error)
	Localities(ctx context.Context) ([]db.Locality, error)
}

// Reindexer drops and rebuilds the search mirror from the primary database.
type Reindexer struct {
	client *Client
	src    Source
}

// NewReindexer wires a reindexer over an open mirror and data source.
func NewReindexer(client *Client, src Source) *Reindexer {
	return &Reindexer{client: client, src: src}
}

// doc is one mirrored record: a hash with its fields plus an index entry.
type doc struct {
	key     string
	name    string
	display string
	fields  map[string]string
}

// ReindexAll rebuilds every entity index and returns per-entity document
// counts. A failing entity aborts the rebuild with the mirror partially
// updated; the next successful run repairs it.
func (r *Reindexer) ReindexAll(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(Entities))
	for _, entity := range Entities {
		n, err := r.ReindexEntity(ctx, entity)
		if err != nil {
			return nil, err
		}
		counts[entity] = n
	}
	return counts, nil
}

// ReindexEntity rebuilds the mirror for one entity and returns its document
// count.
func (r *Reindexer) ReindexEntity(ctx context.Context, entity string) (int, error) {
	if !ValidEntity(entity) {
		return 0, fmt.Errorf("unknown search entity %q", entity)
	}
	docs, err := r.collect(ctx, entity)
	if err != nil {
		return 0, fmt.Errorf("collect %s: %w", entity, err)
	}
	if err := r.rewrite(ctx, entity, docs); err != nil {
		return 0, fmt.Errorf("rewrite %s: %w", entity, err)
	}
	logger.Info("SEARCH", fmt.Sprintf("Reindexed %d %s docs", len(docs), entity))
	return len(docs), nil
}

func (r *Reindexer) collect(ctx context.Context, entity string) ([]doc, error) {
	switch entity {
	case "station":
		stations, err := r.src.Stations(ctx)
		if err != nil {
			return nil, err
		}
		docs := make([]doc, 0, len(stations))
		for _, st := range stations {
			docs = append(docs, doc{
				key:     st.Code,
				name:    st.Name,
				display: stationDisplay(st),
				fields: map[string]string{
					"code":     st.Code,
					"name":     st.Name,
					"region":   st.RegionName,
					"district": st.DistrictName,
					"base":     strconv.FormatBool(st.Base),
				},
			})
		}
		return docs, nil

	case "partner":
		partners, err := r.src.Partners(ctx)
		if err != nil {
			return nil, err
		}
		docs := make([]doc, 0, len(partners))
		for _, p := range partners {
			docs = append(docs, doc{
				key:     strconv.FormatInt(p.ID, 10),
				name:    p.Name,
				display: partnerDisplay(p),
				fields:  map[string]string{"name": p.Name, "inn": p.INN, "email": p.Email},
			})
		}
		return docs, nil

	case "elevator":
		elevators, err := r.src.Elevators(ctx)
		if err != nil {
			return nil, err
		}
		docs := make([]doc, 0, len(elevators))
		for _, e := range elevators {
			docs = append(docs, doc{
				key:     strconv.FormatInt(e.ID, 10),
				name:    e.Name,
				display: elevatorDisplay(e),
				fields:  map[string]string{"name": e.Name, "station_code": e.StationCode, "station_name": e.StationName},
			})
		}
		return docs, nil

	case "region":
		regions, err := r.src.Regions(ctx)
		if err != nil {
			return nil, err
		}
		docs := make([]doc, 0, len(regions))
		for _, reg := range regions {
			docs = append(docs, doc{
				key:     strconv.FormatInt(reg.ID, 10),
				name:    reg.Name,
				display: reg.Name,
				fields:  map[string]string{"name": reg.Name},
			})
		}
		return docs, nil

	case "district":
		districts, err := r.src.Districts(ctx)
		if err != nil {
			return nil, err
		}
		docs := make([]doc, 0, len(districts))
		for _, dd := range districts {
			docs = append(docs, doc{
				key:     strconv.FormatInt(dd.ID, 10),
				name:    dd.Name,
				display: dd.Name,
				fields:  map[string]string{"name": dd.Name, "region_id": strconv.FormatInt(dd.RegionID, 10)},
			})
		}
		return docs, nil

	case "locality":
		localities, err := r.src.Localities(ctx)
		if err != nil {
			return nil, err
		}
		docs := make([]doc, 0, len(localities))
		for _, l := range localities {
			docs = append(docs, doc{
				key:     strconv.FormatInt(l.ID, 10),
				name:    l.Name,
				display: l.Name,
				fields:  map[string]string{"name": l.Name, "district_id": strconv.FormatInt(l.DistrictID, 10)},
			})
		}
		return docs, nil
	}
	return nil, fmt.Errorf("unknown search entity %q", entity)
}

// rewrite drops the entity's documents and index, then writes the new set in
// one pipeline.
func (r *Reindexer) rewrite(ctx context.Context, entity string, docs []doc) error {
	iter := r.client.rdb.Scan(ctx, 0, docKey(entity, "*"), 200).Iterator()
	var stale []string
	for iter.Next(ctx) {
		stale = append(stale, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan stale docs: %w", err)
	}
	if len(stale) > 0 {
		if err := r.client.rdb.Del(ctx, stale...).Err(); err != nil {
			return fmt.Errorf("delete stale docs: %w", err)
		}
	}
	if err := r.client.rdb.Del(ctx, indexKey(entity)).Err(); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}

	pipe := r.client.rdb.Pipeline()
	for _, d := range docs {
		pipe.HSet(ctx, docKey(entity, d.key), d.fields)
		pipe.ZAdd(ctx, indexKey(entity), redis.Z{Score: 0, Member: member(d.name, d.key, d.display)})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write docs: %w", err)
	}
	return nil
}

func stationDisplay(st market.Station) string {
	if st.RegionName != "" {
		return fmt.Sprintf("%s (%s)", st.Name, st.RegionName)
	}
	return st.Name
}

func partnerDisplay(p db.Partner) string {
	if p.INN != "" {
		return fmt.Sprintf("%s, ИНН %s", p.Name, p.INN)
	}
	return p.Name
}

func elevatorDisplay(e market.Elevator) string {
	if e.StationName != "" {
		return fmt.Sprintf("%s (ст. %s)", e.Name, e.StationName)
	}
	return e.Name
}
