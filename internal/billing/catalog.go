package billing

import (
	"time"

	"github.com/stylistbot/stylist-bot/types"
)

const (
	// WarnThreshold is the remaining-credit level at or below which a
	// gentle warning is shown instead of a silent pass.
	WarnThreshold = 3

	// PaygTTL is the rolling window for pay-as-you-go credits bought
	// outside a pass. Top-ups never extend an already-open window.
	PaygTTL = 30 * 24 * time.Hour
)

// PaygItem is a purchasable pay-as-you-go credit bundle.
type PaygItem struct {
	ID         string
	Name       string
	Service    types.Service
	PriceStars int
	Quota      int
}

// Catalog is the static table of purchasable tiers and pay-as-you-go
// items. It is built once at startup and never mutated.
type Catalog struct {
	tiers     map[string]types.Tier
	tierOrder []string
	payg      map[string]PaygItem
	paygOrder []string
}

func NewCatalog(tiers []types.Tier, payg []PaygItem) *Catalog {
	c := &Catalog{
		tiers: make(map[string]types.Tier, len(tiers)),
		payg:  make(map[string]PaygItem, len(payg)),
	}
	for _, t := range tiers {
		c.tiers[t.ID] = t
		c.tierOrder = append(c.tierOrder, t.ID)
	}
	for _, p := range payg {
		c.payg[p.ID] = p
		c.paygOrder = append(c.paygOrder, p.ID)
	}
	return c
}

// DefaultCatalog returns the production tiers and pay-as-you-go items.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		[]types.Tier{
			{
				ID:         "pro_1day",
				Name:       "1-Day Pro Pass",
				PriceStars: 499,
				Duration:   24 * time.Hour,
				Quota:      map[types.Service]int{types.ServiceFlux: 50, types.ServiceKling: 10},
			},
			{
				ID:         "creator_7day",
				Name:       "7-Day Creator Pass",
				PriceStars: 2999,
				Duration:   7 * 24 * time.Hour,
				Quota:      map[types.Service]int{types.ServiceFlux: 500, types.ServiceKling: 50},
			},
			{
				ID:         "studio_30day",
				Name:       "30-Day Studio Pass",
				PriceStars: 9999,
				Duration:   30 * 24 * time.Hour,
				Quota:      map[types.Service]int{types.ServiceFlux: 2000, types.ServiceKling: 200},
			},
		},
		[]PaygItem{
			{ID: "flux_extra", Name: "Extra style credit", Service: types.ServiceFlux, PriceStars: 25, Quota: 1},
			{ID: "kling_extra", Name: "Extra video credit", Service: types.ServiceKling, PriceStars: 50, Quota: 1},
		},
	)
}

func (c *Catalog) Tier(id string) (types.Tier, bool) {
	t, ok := c.tiers[id]
	return t, ok
}

func (c *Catalog) Tiers() []types.Tier {
	out := make([]types.Tier, 0, len(c.tierOrder))
	for _, id := range c.tierOrder {
		out = append(out, c.tiers[id])
	}
	return out
}

func (c *Catalog) PaygItem(id string) (PaygItem, bool) {
	p, ok := c.payg[id]
	return p, ok
}

func (c *Catalog) PaygItems() []PaygItem {
	out := make([]PaygItem, 0, len(c.paygOrder))
	for _, id := range c.paygOrder {
		out = append(out, c.payg[id])
	}
	return out
}
