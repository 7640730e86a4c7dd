package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Bus fans out to one async producer per topic. The API publishes to several
// lifecycle topics; a single shared writer would lose the per-topic config.
type Bus struct {
	producers map[string]*Producer
}

func NewBus(brokers []string, topics []string, buf int) *Bus {
	b := &Bus{producers: make(map[string]*Producer, len(topics))}
	for _, t := range topics {
		b.producers[t] = NewProducer(brokers, t, buf)
	}
	return b
}

func (b *Bus) Start(ctx context.Context) {
	for _, p := range b.producers {
		p.Start(ctx)
	}
}

func (b *Bus) Publish(topic string, key, value []byte, headers ...kafka.Header) {
	if p, ok := b.producers[topic]; ok {
		p.Publish(key, value, headers...)
	}
}

func (b *Bus) Close() {
	for _, p := range b.producers {
		p.Close()
	}
}

func (b *Bus) WaitClosed() {
	for _, p := range b.producers {
		p.WaitClosed()
	}
}
