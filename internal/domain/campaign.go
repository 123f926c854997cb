package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus is the scheduler-driven lifecycle state of a flash sale.
type CampaignStatus string

const (
	CampaignScheduled CampaignStatus = "SCHEDULED"
	CampaignActive    CampaignStatus = "ACTIVE"
	CampaignEnded     CampaignStatus = "ENDED"
	CampaignCancelled CampaignStatus = "CANCELLED"
)

// ProductEntry is one product's capacity and pricing inside a campaign.
// ConfirmedSold is a running total maintained at confirm time; it is
// reporting state, not part of the oversell invariant.
type ProductEntry struct {
	ProductID           uuid.UUID
	SalePriceCents      int64
	ReferencePriceCents int64
	StockLimit          int
	PerBuyerLimit       int
	ConfirmedSold       int
}

// Campaign is a time-boxed flash sale with a fixed product configuration.
// Products are owned by the aggregate; invariants are enforced in Validate
// rather than delegated to storage constraints.
type Campaign struct {
	CampaignID         uuid.UUID
	Name               string
	StartsAt           time.Time
	EndsAt             time.Time
	Status             CampaignStatus
	EarlyAccessMinutes int
	EarlyAccessTiers   []string
	Products           []ProductEntry
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Product resolves a campaign product entry by id.
func (c Campaign) Product(productID uuid.UUID) (ProductEntry, bool) {
	for _, p := range c.Products {
		if p.ProductID == productID {
			return p, true
		}
	}
	return ProductEntry{}, false
}

// EarlyAccessStart is the instant eligible tiers may start reserving.
func (c Campaign) EarlyAccessStart() time.Time {
	return c.StartsAt.Add(-time.Duration(c.EarlyAccessMinutes) * time.Minute)
}

// TierEligible reports whether a buyer tier may use the early-access window.
func (c Campaign) TierEligible(tier string) bool {
	for _, t := range c.EarlyAccessTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// Validate enforces the campaign aggregate invariants.
func (c Campaign) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: campaign name is required", ErrInvalidInput)
	}
	if !c.EndsAt.After(c.StartsAt) {
		return fmt.Errorf("%w: campaign end must be after start", ErrInvalidInput)
	}
	if c.EarlyAccessMinutes < 0 {
		return fmt.Errorf("%w: early access minutes must not be negative", ErrInvalidInput)
	}
	for _, tier := range c.EarlyAccessTiers {
		if tier == "" {
			return fmt.Errorf("%w: early access tier must not be empty", ErrInvalidInput)
		}
		// Tiers are stored comma-separated.
		if strings.Contains(tier, ",") {
			return fmt.Errorf("%w: early access tier %q must not contain a comma", ErrInvalidInput, tier)
		}
	}
	if len(c.Products) == 0 {
		return fmt.Errorf("%w: campaign requires at least one product", ErrInvalidInput)
	}
	seen := make(map[uuid.UUID]bool, len(c.Products))
	for _, p := range c.Products {
		if p.ProductID == uuid.Nil {
			return fmt.Errorf("%w: product id is required", ErrInvalidInput)
		}
		if seen[p.ProductID] {
			return fmt.Errorf("%w: duplicate product %s", ErrInvalidInput, p.ProductID)
		}
		seen[p.ProductID] = true
		if p.StockLimit < 1 {
			return fmt.Errorf("%w: stock limit must be at least 1", ErrInvalidInput)
		}
		if p.PerBuyerLimit < 1 {
			return fmt.Errorf("%w: per-buyer limit must be at least 1", ErrInvalidInput)
		}
		if p.SalePriceCents < 0 || p.ReferencePriceCents < 0 {
			return fmt.Errorf("%w: prices must not be negative", ErrInvalidInput)
		}
	}
	return nil
}
