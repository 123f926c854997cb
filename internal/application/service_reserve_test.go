package application_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/application"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
)

func TestReserveHoldsStockAndEnqueuesEvent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	campaign, productID := f.seedCampaign(10, 2)

	reservation, err := f.service.Reserve(ctx, application.ReserveRequest{
		CampaignID: campaign.CampaignID,
		ProductID:  productID,
		BuyerID:    "buyer-1",
		Quantity:   1,
	})
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if reservation.Status != domain.ReservationActive {
		t.Fatalf("expected ACTIVE reservation, got %s", reservation.Status)
	}
	if got, want := reservation.ExpiresAt, testStart.Add(5*time.Minute); !got.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, got)
	}
	if got := f.counters.availableStock(campaign.CampaignID, productID); got != 9 {
		t.Fatalf("expected 9 units left, got %d", got)
	}
	if got := f.counters.buyerReserved(campaign.CampaignID, productID, "buyer-1"); got != 1 {
		t.Fatalf("expected buyer reserved 1, got %d", got)
	}
	types := f.reservations.eventTypes()
	if len(types) != 1 || types[0] != application.EventReservationCreated {
		t.Fatalf("expected one reservation.created event, got %v", types)
	}
}

func TestReserveRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	campaign, productID := f.seedCampaign(10, 2)

	if _, err := f.service.Reserve(ctx, application.ReserveRequest{
		CampaignID: campaign.CampaignID,
		ProductID:  productID,
		BuyerID:    "buyer-1",
		Quantity:   0,
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero quantity, got %v", err)
	}
	if _, err := f.service.Reserve(ctx, application.ReserveRequest{
		CampaignID: campaign.CampaignID,
		ProductID:  productID,
		Quantity:   1,
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing buyer, got %v", err)
	}
}

func TestReserveUnknownCampaignAndProduct(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	campaign, _ := f.seedCampaign(10, 2)

	if _, err := f.service.Reserve(ctx, application.ReserveRequest{
		CampaignID: uuid.New(),
		ProductID:  uuid.New(),
		BuyerID:    "buyer-1",
		Quantity:   1,
	}); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("expected campaign not found, got %v", err)
	}
	if _, err := f.service.Reserve(ctx, application.ReserveRequest{
		CampaignID: campaign.CampaignID,
		ProductID:  uuid.New(),
		BuyerID:    "buyer-1",
		Quantity:   1,
	}); !errors.Is(err, domain.ErrProductNotInCampaign) {
		t.Fatalf("expected product not in campaign, got %v", err)
	}
}

func TestReserveEnforcesSaleWindow(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	productID := uuid.New()
	campaign, _ := f.campaigns.Create(ctx, domain.Campaign{
		Name:               "vip launch",
		StartsAt:           testStart.Add(30 * time.Minute),
		EndsAt:             testStart.Add(2 * time.Hour),
		Status:             domain.CampaignActive,
		EarlyAccessMinutes: 15,
		EarlyAccessTiers:   []string{"GOLD"},
		Products: []domain.ProductEntry{{
			ProductID:     productID,
			StockLimit:    10,
			PerBuyerLimit: 2,
		}},
	})
	_ = f.counters.InitializeStock(ctx, campaign.CampaignID, productID, 10, campaign.EndsAt)

	req := application.ReserveRequest{
		CampaignID: campaign.CampaignID,
		ProductID:  productID,
		BuyerID:    "buyer-1",
		Quantity:   1,
	}

	// Before the early-access window opens, nobody gets in.
	if _, err := f.service.Reserve(ctx, req); !errors.Is(err, domain.ErrCampaignNotStarted) {
		t.Fatalf("expected not started before early access, got %v", err)
	}

	// Inside the early-access window only eligible tiers pass.
	f.clock.Set(testStart.Add(20 * time.Minute))
	_, err := f.service.Reserve(ctx, req)
	if !errors.Is(err, domain.ErrEarlyAccessRestricted) {
		t.Fatalf("expected early access rejection, got %v", err)
	}
	var earlyErr *domain.EarlyAccessError
	if !errors.As(err, &earlyErr) || earlyErr.MinutesUntilOpen != 10 {
		t.Fatalf("expected 10 minutes until open, got %+v", earlyErr)
	}

	goldReq := req
	goldReq.BuyerID = "buyer-gold"
	goldReq.BuyerTier = "GOLD"
	if _, err := f.service.Reserve(ctx, goldReq); err != nil {
		t.Fatalf("expected eligible tier to reserve in early access: %v", err)
	}

	// Once the public window opens the tier no longer matters.
	f.clock.Set(testStart.Add(40 * time.Minute))
	if _, err := f.service.Reserve(ctx, req); err != nil {
		t.Fatalf("expected public window reserve to succeed: %v", err)
	}

	f.clock.Set(testStart.Add(3 * time.Hour))
	if _, err := f.service.Reserve(ctx, req); !errors.Is(err, domain.ErrCampaignEnded) {
		t.Fatalf("expected campaign ended, got %v", err)
	}
}

func TestReserveRejectsCancelledCampaign(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	campaign, productID := f.seedCampaign(10, 2)

	f.campaigns.mu.Lock()
	cancelled := f.campaigns.byID[campaign.CampaignID]
	cancelled.Status = domain.CampaignCancelled
	f.campaigns.byID[campaign.CampaignID] = cancelled
	f.campaigns.mu.Unlock()

	// The window is still open; cancellation alone must close the sale.
	if _, err := f.service.Reserve(ctx, application.ReserveRequest{
		CampaignID: campaign.CampaignID,
		ProductID:  productID,
		BuyerID:    "buyer-1",
		Quantity:   1,
	}); !errors.Is(err, domain.ErrCampaignEnded) {
		t.Fatalf("expected cancelled campaign to reject as ended, got %v", err)
	}
	if got := f.counters.availableStock(campaign.CampaignID, productID); got != 10 {
		t.Fatalf("expected stock untouched, got %d", got)
	}
}

func TestReserveEnforcesPerBuyerLimit(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	campaign, productID := f.seedCampaign(10, 2)

	req := application.ReserveRequest{
		CampaignID: campaign.CampaignID,
		ProductID:  productID,
		BuyerID:    "buyer-1",
		Quantity:   2,
	}
	reservation, err := f.service.Reserve(ctx, req)
	if err != nil {
		t.Fatalf("reserve at limit failed: %v", err)
	}

	req.Quantity = 1
	if _, err := f.service.Reserve(ctx, req); !errors.Is(err, domain.ErrUserLimitExceeded) {
		t.Fatalf("expected user limit rejection on top of reserved units, got %v", err)
	}

	// Confirmed units keep counting against the limit.
	if _, err := f.service.Confirm(ctx, reservation.ReservationID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, err := f.service.Reserve(ctx, req); !errors.Is(err, domain.ErrUserLimitExceeded) {
		t.Fatalf("expected user limit rejection on confirmed units, got %v", err)
	}

	// A different buyer is unaffected.
	req.BuyerID = "buyer-2"
	if _, err := f.service.Reserve(ctx, req); err != nil {
		t.Fatalf("second buyer reserve failed: %v", err)
	}
}

func TestReserveSoldOutRestoresCounter(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	campaign, productID := f.seedCampaign(1, 2)

	if _, err := f.service.Reserve(ctx, application.ReserveRequest{
		CampaignID: campaign.CampaignID,
		ProductID:  productID,
		BuyerID:    "buyer-1",
		Quantity:   1,
	}); err != nil {
		t.Fatalf("reserve last unit failed: %v", err)
	}

	if _, err := f.service.Reserve(ctx, application.ReserveRequest{
		CampaignID: campaign.CampaignID,
		ProductID:  productID,
		BuyerID:    "buyer-2",
		Quantity:   1,
	}); !errors.Is(err, domain.ErrSoldOut) {
		t.Fatalf("expected sold out, got %v", err)
	}
	// The compensating increment leaves the counter at exactly zero.
	if got := f.counters.availableStock(campaign.CampaignID, productID); got != 0 {
		t.Fatalf("expected counter restored to 0 after sold-out rejection, got %d", got)
	}
}

func TestReserveConcurrentNeverOversells(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	campaign, productID := f.seedCampaign(10, 2)

	const attempts = 40
	var succeeded atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.service.Reserve(ctx, application.ReserveRequest{
				CampaignID: campaign.CampaignID,
				ProductID:  productID,
				BuyerID:    uuid.NewString(),
				Quantity:   1,
			})
			if err == nil {
				succeeded.Add(1)
			} else if !errors.Is(err, domain.ErrSoldOut) {
				t.Errorf("attempt %d: unexpected error %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	if got := succeeded.Load(); got != 10 {
		t.Fatalf("expected exactly 10 successful holds for 10 units, got %d", got)
	}
	if got := f.counters.availableStock(campaign.CampaignID, productID); got != 0 {
		t.Fatalf("expected counter drained to 0, got %d", got)
	}
}

func TestReserveCompensatesWhenPersistFails(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	campaign, productID := f.seedCampaign(10, 2)
	f.reservations.createErr = errors.New("database unavailable")

	_, err := f.service.Reserve(ctx, application.ReserveRequest{
		CampaignID: campaign.CampaignID,
		ProductID:  productID,
		BuyerID:    "buyer-1",
		Quantity:   2,
	})
	if err == nil {
		t.Fatalf("expected reserve to surface the persist failure")
	}
	if got := f.counters.availableStock(campaign.CampaignID, productID); got != 10 {
		t.Fatalf("expected stock counter restored to 10, got %d", got)
	}
	if got := f.counters.buyerReserved(campaign.CampaignID, productID, "buyer-1"); got != 0 {
		t.Fatalf("expected buyer reserved rolled back to 0, got %d", got)
	}
}

func TestReserveFailsFastWhenLedgerUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	campaign, productID := f.seedCampaign(10, 2)
	f.counters.errBuyerCounts = errors.New("connection refused")

	if _, err := f.service.Reserve(ctx, application.ReserveRequest{
		CampaignID: campaign.CampaignID,
		ProductID:  productID,
		BuyerID:    "buyer-1",
		Quantity:   1,
	}); !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Fatalf("expected ledger unavailable, got %v", err)
	}
}
