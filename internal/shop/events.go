package shop

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	TopicOrderPlaced = "order.placed"
	TopicStockLow    = "stock.low"
)

const (
	EventOrderPlaced = "OrderPlaced"
	EventStockLow    = "StockLow"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type PlacedItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderPlacedPayload struct {
	OrderID int64        `json:"order_id"`
	UserID  int64        `json:"user_id"`
	Items   []PlacedItem `json:"items"`
}

type StockLowPayload struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	UnitsInStock int    `json:"units_in_stock"`
	Threshold    int    `json:"threshold"`
}

// Partition key = order id so all events for one order keep their order.
func PartitionKey(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}
