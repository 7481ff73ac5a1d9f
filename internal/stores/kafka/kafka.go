package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	TopicOrderPaid = `order-service.order-paid`
)

// Event published for every line item of an order once its payment settles.
type OrderPaidEvent struct {
	OrderId   string    `json:"order_id"`
	ProductId string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

type Conf struct {
	client *kgo.Client
}

func NewConf(host string, port string) (*Conf, error) {
	if host == "" || port == "" {
		return nil, fmt.Errorf("kafka host or port is empty")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(host+":"+port),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}

	// Fail fast if the broker is unreachable instead of at first produce.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging kafka broker: %w", err)
	}

	return &Conf{client: client}, nil
}

func (c *Conf) ProduceMessage(topic string, key []byte, value []byte) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: value,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := c.client.ProduceSync(ctx, record).FirstErr()
	if err != nil {
		return fmt.Errorf("producing message to %s: %w", topic, err)
	}
	return nil
}

func (c *Conf) Close() {
	c.client.Close()
}
