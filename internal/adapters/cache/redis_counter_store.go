package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/ports"
)

// RedisCounterStore implements the stock ledger counters on Redis.
// INCRBY/DECRBY are the serialization points for the oversell invariant;
// multi-key moves use MULTI/EXEC pipelines so no intermediate state is
// observable. All keys expire at campaign end since the durable reservation
// log can rebuild them.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore creates a counter store backed by Redis.
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func stockKey(campaignID, productID uuid.UUID) string {
	return "sale:stock:" + campaignID.String() + ":" + productID.String()
}

func reservedKey(campaignID, productID uuid.UUID, buyerID string) string {
	return "sale:buyer:" + campaignID.String() + ":" + productID.String() + ":" + buyerID + ":reserved"
}

func confirmedKey(campaignID, productID uuid.UUID, buyerID string) string {
	return "sale:buyer:" + campaignID.String() + ":" + productID.String() + ":" + buyerID + ":confirmed"
}

func (s *RedisCounterStore) InitializeStock(ctx context.Context, campaignID, productID uuid.UUID, limit int64, expiresAt time.Time) error {
	return s.SetStock(ctx, campaignID, productID, limit, expiresAt)
}

func (s *RedisCounterStore) SetStock(ctx context.Context, campaignID, productID uuid.UUID, value int64, expiresAt time.Time) error {
	key := stockKey(campaignID, productID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, value, 0)
		p.ExpireAt(ctx, key, expiresAt)
		return nil
	})
	return err
}

func (s *RedisCounterStore) DecrementStock(ctx context.Context, campaignID, productID uuid.UUID, qty int64) (int64, error) {
	return s.client.DecrBy(ctx, stockKey(campaignID, productID), qty).Result()
}

func (s *RedisCounterStore) IncrementStock(ctx context.Context, campaignID, productID uuid.UUID, qty int64) (int64, error) {
	return s.client.IncrBy(ctx, stockKey(campaignID, productID), qty).Result()
}

func (s *RedisCounterStore) AvailableStock(ctx context.Context, campaignID, productID uuid.UUID) (int64, bool, error) {
	raw, err := s.client.Get(ctx, stockKey(campaignID, productID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	value, convErr := strconv.ParseInt(raw, 10, 64)
	if convErr != nil {
		return 0, false, convErr
	}
	return value, true, nil
}

func (s *RedisCounterStore) BuyerCounts(ctx context.Context, campaignID, productID uuid.UUID, buyerID string) (ports.BuyerCounts, error) {
	values, err := s.client.MGet(ctx,
		reservedKey(campaignID, productID, buyerID),
		confirmedKey(campaignID, productID, buyerID),
	).Result()
	if err != nil {
		return ports.BuyerCounts{}, err
	}
	counts := ports.BuyerCounts{}
	counts.Reserved = parseCounter(values[0])
	counts.Confirmed = parseCounter(values[1])
	return counts, nil
}

// parseCounter treats absent keys as zero; Redis returns nil for them in MGET.
func parseCounter(value any) int64 {
	raw, ok := value.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (s *RedisCounterStore) AddReserved(ctx context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64, expiresAt time.Time) error {
	key := reservedKey(campaignID, productID, buyerID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.IncrBy(ctx, key, qty)
		p.ExpireAt(ctx, key, expiresAt)
		return nil
	})
	return err
}

func (s *RedisCounterStore) SubtractReserved(ctx context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64) error {
	return s.client.DecrBy(ctx, reservedKey(campaignID, productID, buyerID), qty).Err()
}

func (s *RedisCounterStore) ConfirmReserved(ctx context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64, expiresAt time.Time) error {
	confirmed := confirmedKey(campaignID, productID, buyerID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.DecrBy(ctx, reservedKey(campaignID, productID, buyerID), qty)
		p.IncrBy(ctx, confirmed, qty)
		// EXPIREAT with a past timestamp deletes the key. A zero expiresAt
		// means the caller has no campaign window; keep the current TTL.
		if !expiresAt.IsZero() {
			p.ExpireAt(ctx, confirmed, expiresAt)
		}
		return nil
	})
	return err
}

func (s *RedisCounterStore) ReleaseReserved(ctx context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.IncrBy(ctx, stockKey(campaignID, productID), qty)
		p.DecrBy(ctx, reservedKey(campaignID, productID, buyerID), qty)
		return nil
	})
	return err
}
