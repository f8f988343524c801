package feed

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/MilaKyr/trading-app/pkg/exchange"
)

// KafkaPublisher publishes executed trades to a Kafka topic as JSON,
// keyed by product so consumers see per-product order. It implements
// exchange.TradeSink; a failed publish is reported to the registry, which
// logs and drops it without touching the matching path.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a SyncProducer to the given brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	// The producer waits for the message to be committed by the broker.
	cfg.Producer.Return.Successes = true
	// WaitForAll ensures the message is committed by the leader AND all in-sync replicas.
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

// NewKafkaPublisherWith wraps an existing producer. Used by tests with
// sarama's mock producer.
func NewKafkaPublisherWith(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishTrade(t exchange.Trade) error {
	event := TradeInfo{
		Product:   t.Symbol,
		Buyer:     uint64(t.BuyerID),
		Seller:    uint64(t.SellerID),
		Timestamp: t.Timestamp.UnixMilli(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(t.Symbol),
		Value: sarama.ByteEncoder(value),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("produce trade to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
