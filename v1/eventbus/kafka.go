package eventbus

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/IBM/sarama"
)

const kafkaTopicPrefix = "verlock-events-"

type kafkaSubscription struct {
	pc    sarama.PartitionConsumer
	chans []chan Event
}

// KafkaBus implements Bus using a Kafka backend. Events are JSON documents on
// a topic per version.
type KafkaBus struct {
	producer sarama.SyncProducer
	consumer sarama.Consumer
	mu       sync.Mutex
	subs     map[string]*kafkaSubscription
}

// NewKafkaBus creates a new KafkaBus connecting to the given brokers.
func NewKafkaBus(brokers []string, cfg *sarama.Config) (*KafkaBus, error) {
	if !cfg.Producer.Return.Successes {
		cfg.Producer.Return.Successes = true
	}
	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = producer.Close()
		_ = client.Close()
		return nil, err
	}
	return &KafkaBus{
		producer: producer,
		consumer: consumer,
		subs:     make(map[string]*kafkaSubscription),
	}, nil
}

func kafkaTopic(versionID string) string {
	// Kafka topic names cannot contain every character a version ID may use.
	r := strings.NewReplacer(":", "_", "/", "_")
	return kafkaTopicPrefix + r.Replace(versionID)
}

// Publish implements Bus.Publish.
func (b *KafkaBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: kafkaTopic(ev.Version),
		Value: sarama.ByteEncoder(data),
	}
	_, _, err = b.producer.SendMessage(msg)
	return err
}

// Subscribe implements Bus.Subscribe.
func (b *KafkaBus) Subscribe(ctx context.Context, versionID string) (chan Event, error) {
	ch := make(chan Event, 1)
	b.mu.Lock()
	sub := b.subs[versionID]
	if sub == nil {
		pc, err := b.consumer.ConsumePartition(kafkaTopic(versionID), 0, sarama.OffsetNewest)
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		sub = &kafkaSubscription{pc: pc}
		b.subs[versionID] = sub
		go b.forward(versionID, pc)
	}
	sub.chans = append(sub.chans, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), versionID, ch)
	}()
	return ch, nil
}

func (b *KafkaBus) forward(versionID string, pc sarama.PartitionConsumer) {
	for msg := range pc.Messages() {
		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			continue
		}
		b.mu.Lock()
		sub := b.subs[versionID]
		var chans []chan Event
		if sub != nil {
			chans = append([]chan Event(nil), sub.chans...)
		}
		b.mu.Unlock()
		for _, c := range chans {
			select {
			case c <- ev:
			default:
			}
		}
	}
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *KafkaBus) Unsubscribe(ctx context.Context, versionID string, ch chan Event) error {
	b.mu.Lock()
	sub := b.subs[versionID]
	if sub == nil {
		b.mu.Unlock()
		return nil
	}
	for i, c := range sub.chans {
		if c == ch {
			sub.chans[i] = sub.chans[len(sub.chans)-1]
			sub.chans = sub.chans[:len(sub.chans)-1]
			close(c)
			break
		}
	}
	if len(sub.chans) == 0 {
		delete(b.subs, versionID)
		b.mu.Unlock()
		return sub.pc.Close()
	}
	b.mu.Unlock()
	return nil
}

// Close shuts down the producer and consumer.
func (b *KafkaBus) Close() error {
	perr := b.producer.Close()
	cerr := b.consumer.Close()
	if perr != nil {
		return perr
	}
	return cerr
}
