package application

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/clock"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/domain"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/ports"
)

// Service orchestrates the stock ledger and reservation lifecycle. All
// dependencies are injected so tests can substitute a fixed clock and
// in-memory counter and repository fakes.
type Service struct {
	cfg          Config
	campaigns    ports.CampaignRepository
	reservations ports.ReservationRepository
	counters     ports.CounterStore
	outbox       ports.OutboxRepository
	clock        clock.Clock
	logger       *slog.Logger
}

type Config struct {
	// HoldDuration is the fixed TTL of an unconfirmed reservation.
	HoldDuration time.Duration
	// CleanupBatchSize bounds how many expired reservations one sweep handles.
	CleanupBatchSize int
}

type Dependencies struct {
	Config       Config
	Campaigns    ports.CampaignRepository
	Reservations ports.ReservationRepository
	Counters     ports.CounterStore
	Outbox       ports.OutboxRepository
	Clock        clock.Clock
	Logger       *slog.Logger
}

const (
	defaultHoldDuration     = 5 * time.Minute
	defaultCleanupBatchSize = 500
)

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = defaultHoldDuration
	}
	if cfg.CleanupBatchSize <= 0 {
		cfg.CleanupBatchSize = defaultCleanupBatchSize
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:          cfg,
		campaigns:    deps.Campaigns,
		reservations: deps.Reservations,
		counters:     deps.Counters,
		outbox:       deps.Outbox,
		clock:        clk,
		logger:       logger.With("module", "application", "layer", "service"),
	}
}

// ledgerErr maps a counter-store failure to the fail-fast sentinel.
func ledgerErr(err error) error {
	if errors.Is(err, domain.ErrLedgerUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
}
