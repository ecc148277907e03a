package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/chaipat/go-shop-backend/internal/kafka"
	"github.com/chaipat/go-shop-backend/internal/redisx"
	"github.com/chaipat/go-shop-backend/internal/shop"
)

// StockReader is the slice of the shop repo this worker needs.
type StockReader interface {
	StockLevels(ctx context.Context, ids []int64) ([]shop.StockLevel, error)
}

// Service consumes order.placed events and raises low-stock alerts for the
// affected products.
type Service struct {
	Repo        StockReader
	Redis       *redis.Client
	Producer    *kafkax.Producer // publishes stock.low
	ServiceName string
	Threshold   int
}

// HandleOrderPlaced is wired in as the consumer handler.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env shop.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != shop.EventOrderPlaced {
		return nil
	}

	// Redelivered events are dropped by event id.
	dkey := fmt.Sprintf(redisx.KeyDedup, "stockwatch", env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[shop.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(p.Items))
	for _, it := range p.Items {
		ids = append(ids, it.ProductID)
	}
	if len(ids) == 0 {
		return nil
	}

	levels, err := s.Repo.StockLevels(ctx, ids)
	if err != nil {
		return err
	}

	for _, lvl := range levels {
		if lvl.UnitsInStock >= s.Threshold {
			continue
		}
		log.Printf("low stock: product=%d (%s) left=%d threshold=%d",
			lvl.ProductID, lvl.Name, lvl.UnitsInStock, s.Threshold)
		s.alert(ctx, lvl, env.TraceID, env.CorrelationID)
	}
	return nil
}

func (s *Service) alert(ctx context.Context, lvl shop.StockLevel, traceID, orderID string) {
	akey := fmt.Sprintf(redisx.KeyStockAlert, lvl.ProductID)
	_ = s.Redis.Set(ctx, akey, lvl.UnitsInStock, redisx.TTLStockAlert).Err()

	if s.Producer == nil {
		return
	}
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     shop.EventStockLow,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(shop.StockLowPayload{
			ProductID:    lvl.ProductID,
			Name:         lvl.Name,
			UnitsInStock: lvl.UnitsInStock,
			Threshold:    s.Threshold,
		}),
	}
	s.Producer.Publish([]byte(fmt.Sprintf("%d", lvl.ProductID)), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventStockLow)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
