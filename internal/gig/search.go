package gig

import (
	"sort"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/seniorchoi/gigagig/internal/geo"
	"github.com/seniorchoi/gigagig/internal/models"
)

// Filter is the part of a search that runs in SQL
type Filter struct {
	Keyword         string
	CategoryID      *int64
	SellerID        *uuid.UUID
	WithCoordinates bool
	Limit           int
	Offset          int
}

var dialect = goqu.Dialect("postgres")

var gigColumns = []interface{}{
	goqu.I("g.id"), goqu.I("g.title"), goqu.I("g.description"), goqu.I("g.price"),
	goqu.I("g.location"), goqu.I("g.latitude"), goqu.I("g.longitude"), goqu.I("g.travel_radius"),
	goqu.I("g.category_id"), goqu.I("g.seller_id"), goqu.I("g.created_at"), goqu.I("g.updated_at"),
	goqu.L("ROUND(AVG(r.rating)::numeric, 2)::float8"),
	goqu.COUNT(goqu.I("r.id")),
}

func (f Filter) conditions() []exp.Expression {
	var where []exp.Expression
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		pattern := "%" + escapeLike(kw) + "%"
		where = append(where, goqu.Or(
			goqu.I("g.title").ILike(pattern),
			goqu.I("g.description").ILike(pattern),
		))
	}
	if f.CategoryID != nil {
		where = append(where, goqu.I("g.category_id").Eq(*f.CategoryID))
	}
	if f.SellerID != nil {
		where = append(where, goqu.I("g.seller_id").Eq(f.SellerID.String()))
	}
	if f.WithCoordinates {
		where = append(where,
			goqu.I("g.latitude").IsNotNull(),
			goqu.I("g.longitude").IsNotNull(),
		)
	}
	return where
}

// BuildSearchQuery renders the gig listing query with positional placeholders
func BuildSearchQuery(f Filter) (string, []interface{}, error) {
	ds := dialect.From(goqu.T("gigs").As("g")).
		Prepared(true).
		Select(gigColumns...).
		LeftJoin(goqu.T("reviews").As("r"), goqu.On(goqu.I("r.gig_id").Eq(goqu.I("g.id")))).
		Where(f.conditions()...).
		GroupBy(goqu.I("g.id")).
		Order(goqu.I("g.created_at").Desc(), goqu.I("g.id").Asc())
	if f.Limit > 0 {
		ds = ds.Limit(uint(f.Limit)).Offset(uint(f.Offset))
	}
	return ds.ToSQL()
}

// BuildCountQuery renders the matching row count for f
func BuildCountQuery(f Filter) (string, []interface{}, error) {
	return dialect.From(goqu.T("gigs").As("g")).
		Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(f.conditions()...).
		ToSQL()
}

// FilterByRadius keeps gigs with coordinates no further than radiusKm from
// origin, nearest first. Gigs without coordinates never match.
func FilterByRadius(gigs []models.Gig, origin geo.Point, radiusKm float64) []models.GigSearchResult {
	out := make([]models.GigSearchResult, 0, len(gigs))
	for _, g := range gigs {
		if !g.HasCoordinates() {
			continue
		}
		d, ok := geo.Within(origin, geo.Point{Latitude: *g.Latitude, Longitude: *g.Longitude}, radiusKm)
		if !ok {
			continue
		}
		dist := d
		out = append(out, models.GigSearchResult{Gig: g, DistanceKm: &dist})
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].DistanceKm < *out[j].DistanceKm })
	return out
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// BuildGetQuery renders the single gig lookup with its review aggregate
func BuildGetQuery(id uuid.UUID) (string, []interface{}, error) {
	return dialect.From(goqu.T("gigs").As("g")).
		Prepared(true).
		Select(gigColumns...).
		LeftJoin(goqu.T("reviews").As("r"), goqu.On(goqu.I("r.gig_id").Eq(goqu.I("g.id")))).
		Where(goqu.I("g.id").Eq(id.String())).
		GroupBy(goqu.I("g.id")).
		ToSQL()
}
