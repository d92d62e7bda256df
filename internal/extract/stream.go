package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/config"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/dataset"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/pipeline"
)

// tradeEvent is the JSON message shape on the trade topic.
type tradeEvent struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Side      string  `json:"side"`
	Timestamp string  `json:"timestamp"`
}

// tradeColumns is the fixed column order for stream batches.
var tradeColumns = []string{"symbol", "price", "quantity", "side", "event_time"}

// TradeStreamExtractor drains a batch of trade events from Kafka.
type TradeStreamExtractor struct {
	cfg *config.KafkaConfig
}

func NewTradeStreamExtractor(cfg *config.KafkaConfig) *TradeStreamExtractor {
	return &TradeStreamExtractor{cfg: cfg}
}

func (e *TradeStreamExtractor) Name() string {
	return "trade_stream"
}

// Extract consumes messages until max_records is reached or the topic
// stays quiet past the idle timeout. Undecodable messages are logged
// and skipped.
//
// Params:
//   - max_records: int batch cap, optional, defaults to 10000
//   - idle_timeout: time.Duration, optional, defaults to 5s
func (e *TradeStreamExtractor) Extract(ctx context.Context, params pipeline.Params) (*dataset.Dataset, error) {
	maxRecords := 10000
	if v, ok := params["max_records"].(int); ok && v > 0 {
		maxRecords = v
	}
	idleTimeout := 5 * time.Second
	if v, ok := params["idle_timeout"].(time.Duration); ok && v > 0 {
		idleTimeout = v
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        e.cfg.Brokers,
		GroupID:        e.cfg.GroupID,
		Topic:          e.cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        1 * time.Second,
		CommitInterval: 1 * time.Second,
	})
	defer reader.Close()

	log := logger.FromContext(ctx)
	rows := make([]map[string]interface{}, 0, maxRecords)
	skipped := 0

	for len(rows) < maxRecords {
		readCtx, cancel := context.WithTimeout(ctx, idleTimeout)
		msg, err := reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if errors.Is(err, context.Canceled) {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to read from topic %s: %w", e.cfg.Topic, err)
		}

		var event tradeEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			skipped++
			log.WithField("offset", msg.Offset).Warnf("Skipping undecodable trade event: %v", err)
			continue
		}
		rows = append(rows, map[string]interface{}{
			"symbol":     event.Symbol,
			"price":      event.Price,
			"quantity":   event.Quantity,
			"side":       event.Side,
			"event_time": event.Timestamp,
		})
	}

	if skipped > 0 {
		log.WithField("skipped", skipped).Warn("Dropped undecodable trade events from batch")
	}
	return dataset.FromRows(tradeColumns, rows)
}
