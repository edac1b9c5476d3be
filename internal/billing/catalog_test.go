package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylistbot/stylist-bot/types"
)

func TestDefaultCatalogTiers(t *testing.T) {
	c := DefaultCatalog()

	tiers := c.Tiers()
	require.Len(t, tiers, 3)
	assert.Equal(t, []string{"pro_1day", "creator_7day", "studio_30day"},
		[]string{tiers[0].ID, tiers[1].ID, tiers[2].ID}, "menu order is part of the catalog")

	pro, ok := c.Tier("pro_1day")
	require.True(t, ok)
	assert.Equal(t, 499, pro.PriceStars)
	assert.Equal(t, 24*time.Hour, pro.Duration)
	assert.Equal(t, 50, pro.Quota[types.ServiceFlux])
	assert.Equal(t, 10, pro.Quota[types.ServiceKling])

	_, ok = c.Tier("gold_90day")
	assert.False(t, ok)
}

func TestDefaultCatalogPaygItems(t *testing.T) {
	c := DefaultCatalog()

	items := c.PaygItems()
	require.Len(t, items, 2)

	flux, ok := c.PaygItem("flux_extra")
	require.True(t, ok)
	assert.Equal(t, types.ServiceFlux, flux.Service)
	assert.Equal(t, 25, flux.PriceStars)
	assert.Equal(t, 1, flux.Quota)

	kling, ok := c.PaygItem("kling_extra")
	require.True(t, ok)
	assert.Equal(t, types.ServiceKling, kling.Service)
	assert.Equal(t, 50, kling.PriceStars)
}
