package application_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/application"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/clock"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/ports"
)

var testStart = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type counterKey struct {
	campaignID uuid.UUID
	productID  uuid.UUID
}

type buyerKey struct {
	campaignID uuid.UUID
	productID  uuid.UUID
	buyerID    string
}

type fakeCounters struct {
	mu              sync.Mutex
	stock           map[counterKey]int64
	reserved        map[buyerKey]int64
	confirmed       map[buyerKey]int64
	confirmExpiries []time.Time

	errBuyerCounts error
	errDecrement   error
	errAddReserved error
	errAvailable   error
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{
		stock:     map[counterKey]int64{},
		reserved:  map[buyerKey]int64{},
		confirmed: map[buyerKey]int64{},
	}
}

func (f *fakeCounters) InitializeStock(_ context.Context, campaignID, productID uuid.UUID, limit int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[counterKey{campaignID, productID}] = limit
	return nil
}

func (f *fakeCounters) SetStock(_ context.Context, campaignID, productID uuid.UUID, value int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[counterKey{campaignID, productID}] = value
	return nil
}

func (f *fakeCounters) DecrementStock(_ context.Context, campaignID, productID uuid.UUID, qty int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errDecrement != nil {
		return 0, f.errDecrement
	}
	key := counterKey{campaignID, productID}
	f.stock[key] -= qty
	return f.stock[key], nil
}

func (f *fakeCounters) IncrementStock(_ context.Context, campaignID, productID uuid.UUID, qty int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := counterKey{campaignID, productID}
	f.stock[key] += qty
	return f.stock[key], nil
}

func (f *fakeCounters) AvailableStock(_ context.Context, campaignID, productID uuid.UUID) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errAvailable != nil {
		return 0, false, f.errAvailable
	}
	value, ok := f.stock[counterKey{campaignID, productID}]
	return value, ok, nil
}

func (f *fakeCounters) BuyerCounts(_ context.Context, campaignID, productID uuid.UUID, buyerID string) (ports.BuyerCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errBuyerCounts != nil {
		return ports.BuyerCounts{}, f.errBuyerCounts
	}
	key := buyerKey{campaignID, productID, buyerID}
	return ports.BuyerCounts{
		Reserved:  f.reserved[key],
		Confirmed: f.confirmed[key],
	}, nil
}

func (f *fakeCounters) AddReserved(_ context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errAddReserved != nil {
		return f.errAddReserved
	}
	f.reserved[buyerKey{campaignID, productID, buyerID}] += qty
	return nil
}

func (f *fakeCounters) SubtractReserved(_ context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserved[buyerKey{campaignID, productID, buyerID}] -= qty
	return nil
}

func (f *fakeCounters) ConfirmReserved(_ context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := buyerKey{campaignID, productID, buyerID}
	f.reserved[key] -= qty
	f.confirmed[key] += qty
	f.confirmExpiries = append(f.confirmExpiries, expiresAt)
	return nil
}

func (f *fakeCounters) ReleaseReserved(_ context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[counterKey{campaignID, productID}] += qty
	f.reserved[buyerKey{campaignID, productID, buyerID}] -= qty
	return nil
}

func (f *fakeCounters) availableStock(campaignID, productID uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[counterKey{campaignID, productID}]
}

func (f *fakeCounters) buyerReserved(campaignID, productID uuid.UUID, buyerID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reserved[buyerKey{campaignID, productID, buyerID}]
}

func (f *fakeCounters) buyerConfirmed(campaignID, productID uuid.UUID, buyerID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmed[buyerKey{campaignID, productID, buyerID}]
}

func (f *fakeCounters) lastConfirmExpiry() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.confirmExpiries) == 0 {
		return time.Time{}, false
	}
	return f.confirmExpiries[len(f.confirmExpiries)-1], true
}

type fakeCampaigns struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]domain.Campaign
	getErr error
}

func newFakeCampaigns() *fakeCampaigns {
	return &fakeCampaigns{byID: map[uuid.UUID]domain.Campaign{}}
}

func (f *fakeCampaigns) Create(_ context.Context, campaign domain.Campaign) (domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if campaign.CampaignID == uuid.Nil {
		campaign.CampaignID = uuid.New()
	}
	f.byID[campaign.CampaignID] = campaign
	return campaign, nil
}

func (f *fakeCampaigns) GetByID(_ context.Context, campaignID uuid.UUID) (domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Campaign{}, f.getErr
	}
	campaign, ok := f.byID[campaignID]
	if !ok {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	return campaign, nil
}

func (f *fakeCampaigns) ListByStatus(_ context.Context, status domain.CampaignStatus) ([]domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Campaign
	for _, campaign := range f.byID {
		if campaign.Status == status {
			out = append(out, campaign)
		}
	}
	return out, nil
}

func (f *fakeCampaigns) UpdateStatus(_ context.Context, campaignID uuid.UUID, from, to domain.CampaignStatus, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	campaign, ok := f.byID[campaignID]
	if !ok {
		return false, domain.ErrCampaignNotFound
	}
	if campaign.Status != from {
		return false, nil
	}
	campaign.Status = to
	campaign.UpdatedAt = at
	f.byID[campaignID] = campaign
	return true, nil
}

func (f *fakeCampaigns) AddConfirmedSold(_ context.Context, campaignID, productID uuid.UUID, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	campaign, ok := f.byID[campaignID]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	for i, entry := range campaign.Products {
		if entry.ProductID == productID {
			campaign.Products[i].ConfirmedSold += qty
			f.byID[campaignID] = campaign
			return nil
		}
	}
	return domain.ErrProductNotInCampaign
}

func (f *fakeCampaigns) confirmedSold(campaignID, productID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.byID[campaignID].Products {
		if entry.ProductID == productID {
			return entry.ConfirmedSold
		}
	}
	return 0
}

type fakeReservations struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]domain.Reservation
	events    []ports.OutboxEvent
	createErr error
	getErr    error
}

func newFakeReservations() *fakeReservations {
	return &fakeReservations{byID: map[uuid.UUID]domain.Reservation{}}
}

func (f *fakeReservations) CreateWithOutboxTx(_ context.Context, params ports.ReservationCreateParams, event ports.OutboxEvent) (domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Reservation{}, f.createErr
	}
	reservation := domain.Reservation{
		ReservationID: uuid.New(),
		CampaignID:    params.CampaignID,
		ProductID:     params.ProductID,
		BuyerID:       params.BuyerID,
		Quantity:      params.Quantity,
		Status:        domain.ReservationActive,
		CreatedAt:     params.CreatedAt,
		ExpiresAt:     params.ExpiresAt,
	}
	f.byID[reservation.ReservationID] = reservation
	f.events = append(f.events, event)
	return reservation, nil
}

func (f *fakeReservations) GetByID(_ context.Context, reservationID uuid.UUID) (domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Reservation{}, f.getErr
	}
	reservation, ok := f.byID[reservationID]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return reservation, nil
}

func (f *fakeReservations) MarkCompleted(_ context.Context, reservationID uuid.UUID, at time.Time) (bool, error) {
	return f.transition(reservationID, domain.ReservationCompleted, at)
}

func (f *fakeReservations) MarkExpired(_ context.Context, reservationID uuid.UUID, at time.Time) (bool, error) {
	return f.transition(reservationID, domain.ReservationExpired, at)
}

func (f *fakeReservations) transition(reservationID uuid.UUID, to domain.ReservationStatus, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reservation, ok := f.byID[reservationID]
	if !ok || reservation.Status != domain.ReservationActive {
		return false, nil
	}
	reservation.Status = to
	if to == domain.ReservationCompleted {
		reservation.CompletedAt = &at
	} else {
		reservation.ExpiredAt = &at
	}
	f.byID[reservationID] = reservation
	return true, nil
}

func (f *fakeReservations) ListExpired(_ context.Context, before time.Time, limit int) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, reservation := range f.byID {
		if reservation.Status == domain.ReservationActive && reservation.ExpiresAt.Before(before) {
			out = append(out, reservation)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeReservations) SumOpenQuantity(_ context.Context, campaignID, productID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, reservation := range f.byID {
		if reservation.CampaignID != campaignID || reservation.ProductID != productID {
			continue
		}
		if reservation.Status == domain.ReservationExpired {
			continue
		}
		total += int64(reservation.Quantity)
	}
	return total, nil
}

func (f *fakeReservations) status(reservationID uuid.UUID) domain.ReservationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[reservationID].Status
}

func (f *fakeReservations) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.events))
	for _, event := range f.events {
		types = append(types, event.EventType)
	}
	return types
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) ClaimUnpublished(_ context.Context, _ int, _ string, _ time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, _ uuid.UUID, _ string, _ time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, _ uuid.UUID, _, _ string, _ time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkDeadLettered(_ context.Context, _ uuid.UUID, _, _ string, _ time.Time) error {
	return nil
}

func (f *fakeOutbox) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.events))
	for _, event := range f.events {
		types = append(types, event.EventType)
	}
	return types
}

type fixture struct {
	service      *application.Service
	campaigns    *fakeCampaigns
	reservations *fakeReservations
	counters     *fakeCounters
	outbox       *fakeOutbox
	clock        *clock.Fixed
}

func newFixture() *fixture {
	return newFixtureWithLog(io.Discard)
}

// newFixtureWithLog routes service logs to w for tests asserting on them.
func newFixtureWithLog(w io.Writer) *fixture {
	campaigns := newFakeCampaigns()
	reservations := newFakeReservations()
	counters := newFakeCounters()
	outbox := &fakeOutbox{}
	clk := clock.NewFixed(testStart)

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			HoldDuration:     5 * time.Minute,
			CleanupBatchSize: 500,
		},
		Campaigns:    campaigns,
		Reservations: reservations,
		Counters:     counters,
		Outbox:       outbox,
		Clock:        clk,
		Logger:       slog.New(slog.NewTextHandler(w, nil)),
	})

	return &fixture{
		service:      svc,
		campaigns:    campaigns,
		reservations: reservations,
		counters:     counters,
		outbox:       outbox,
		clock:        clk,
	}
}

// seedCampaign stores an ACTIVE in-window campaign with one product and
// initializes its stock counter.
func (f *fixture) seedCampaign(stockLimit, perBuyerLimit int) (domain.Campaign, uuid.UUID) {
	productID := uuid.New()
	campaign := domain.Campaign{
		CampaignID: uuid.New(),
		Name:       "spring drop",
		StartsAt:   testStart.Add(-time.Hour),
		EndsAt:     testStart.Add(time.Hour),
		Status:     domain.CampaignActive,
		Products: []domain.ProductEntry{{
			ProductID:           productID,
			SalePriceCents:      4999,
			ReferencePriceCents: 7999,
			StockLimit:          stockLimit,
			PerBuyerLimit:       perBuyerLimit,
		}},
		CreatedAt: testStart.Add(-2 * time.Hour),
		UpdatedAt: testStart.Add(-2 * time.Hour),
	}
	ctx := context.Background()
	campaign, _ = f.campaigns.Create(ctx, campaign)
	_ = f.counters.InitializeStock(ctx, campaign.CampaignID, productID, int64(stockLimit), campaign.EndsAt)
	return campaign, productID
}
