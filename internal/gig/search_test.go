package gig

import (
	"testing"

	"github.com/google/uuid"
	"github.com/seniorchoi/gigagig/internal/geo"
	"github.com/seniorchoi/gigagig/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchQuery_CategoryIsExactMatch(t *testing.T) {
	cat := int64(7)
	sql, args, err := BuildSearchQuery(Filter{CategoryID: &cat, Limit: 20})
	require.NoError(t, err)

	assert.Contains(t, sql, `"g"."category_id" = $1`)
	assert.NotContains(t, sql, "ILIKE")
	assert.Contains(t, args, int64(7))
	assert.Contains(t, sql, `ORDER BY "g"."created_at" DESC`)
}

func TestBuildSearchQuery_KeywordMatchesTitleOrDescription(t *testing.T) {
	sql, args, err := BuildSearchQuery(Filter{Keyword: "  guitar "})
	require.NoError(t, err)

	assert.Contains(t, sql, `"g"."title" ILIKE`)
	assert.Contains(t, sql, `"g"."description" ILIKE`)
	assert.Contains(t, sql, " OR ")
	assert.Contains(t, args, "%guitar%")
	assert.NotContains(t, sql, "LIMIT", "no limit when none requested")
}

func TestBuildSearchQuery_EscapesWildcards(t *testing.T) {
	_, args, err := BuildSearchQuery(Filter{Keyword: "50%_off"})
	require.NoError(t, err)
	assert.Contains(t, args, `%50\%\_off%`)
}

func TestBuildSearchQuery_RadiusRequiresCoordinates(t *testing.T) {
	sql, _, err := BuildSearchQuery(Filter{WithCoordinates: true})
	require.NoError(t, err)
	assert.Contains(t, sql, `"g"."latitude" IS NOT NULL`)
	assert.Contains(t, sql, `"g"."longitude" IS NOT NULL`)
}

func TestBuildCountQuery_SharesConditions(t *testing.T) {
	cat := int64(3)
	sql, args, err := BuildCountQuery(Filter{Keyword: "dog", CategoryID: &cat})
	require.NoError(t, err)
	assert.Contains(t, sql, "COUNT(*)")
	assert.Contains(t, sql, `"g"."category_id" =`)
	assert.Contains(t, args, "%dog%")
}

func ptr(f float64) *float64 { return &f }

func TestFilterByRadius(t *testing.T) {
	// Origin in central London
	origin := geo.Point{Latitude: 51.5074, Longitude: -0.1278}
	near := models.Gig{ID: uuid.New(), Title: "near", Latitude: ptr(51.5155), Longitude: ptr(-0.0922)}
	nearer := models.Gig{ID: uuid.New(), Title: "nearer", Latitude: ptr(51.5080), Longitude: ptr(-0.1280)}
	paris := models.Gig{ID: uuid.New(), Title: "paris", Latitude: ptr(48.8566), Longitude: ptr(2.3522)}
	nowhere := models.Gig{ID: uuid.New(), Title: "nowhere"}

	got := FilterByRadius([]models.Gig{near, paris, nowhere, nearer}, origin, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "nearer", got[0].Title, "results are nearest first")
	assert.Equal(t, "near", got[1].Title)
	for _, r := range got {
		require.NotNil(t, r.DistanceKm)
		assert.LessOrEqual(t, *r.DistanceKm, 10.0)
	}

	assert.Empty(t, FilterByRadius([]models.Gig{nowhere}, origin, 20000))
}
