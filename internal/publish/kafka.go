package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"investohlcv/internal/config"
)

// Compile-time interface check.
var _ Producer = (*KafkaProducer)(nil)

// KafkaProducer adapts a sarama.AsyncProducer to Producer. A background
// goroutine drains acknowledgements so the producer never stalls on a full
// Successes channel; Flush waits until every sent message is acknowledged.
type KafkaProducer struct {
	producer sarama.AsyncProducer

	mu      sync.Mutex
	pending int
	errs    []error
	acked   chan struct{}
	drained chan struct{}
}

// NewKafkaProducer wraps p. The producer must be configured with
// Producer.Return.Successes and Producer.Return.Errors enabled.
func NewKafkaProducer(p sarama.AsyncProducer) *KafkaProducer {
	kp := &KafkaProducer{
		producer: p,
		acked:    make(chan struct{}, 1),
		drained:  make(chan struct{}),
	}
	go kp.drain()
	return kp
}

func (kp *KafkaProducer) drain() {
	defer close(kp.drained)
	successes, failures := kp.producer.Successes(), kp.producer.Errors()
	for successes != nil || failures != nil {
		select {
		case _, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			kp.ack(nil)
		case perr, ok := <-failures:
			if !ok {
				failures = nil
				continue
			}
			kp.ack(fmt.Errorf("delivering to %s: %w", perr.Msg.Topic, perr.Err))
		}
	}
}

func (kp *KafkaProducer) ack(err error) {
	kp.mu.Lock()
	kp.pending--
	if err != nil {
		kp.errs = append(kp.errs, err)
	}
	kp.mu.Unlock()

	select {
	case kp.acked <- struct{}{}:
	default:
	}
}

// Send enqueues one message. It blocks only while the producer's input
// buffer is full.
func (kp *KafkaProducer) Send(ctx context.Context, topic string, key, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	kp.mu.Lock()
	kp.pending++
	kp.mu.Unlock()

	select {
	case kp.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		kp.mu.Lock()
		kp.pending--
		kp.mu.Unlock()
		return ctx.Err()
	}
}

// Flush blocks until every message sent so far is acknowledged and returns
// the delivery errors collected since the previous Flush.
func (kp *KafkaProducer) Flush(ctx context.Context) error {
	for {
		kp.mu.Lock()
		if kp.pending <= 0 {
			errs := kp.errs
			kp.errs = nil
			kp.mu.Unlock()
			return errors.Join(errs...)
		}
		kp.mu.Unlock()

		select {
		case <-kp.acked:
		case <-kp.drained:
			return errors.New("producer closed with messages outstanding")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close shuts the producer down and waits for in-flight messages.
func (kp *KafkaProducer) Close() error {
	kp.producer.AsyncClose()
	<-kp.drained

	kp.mu.Lock()
	defer kp.mu.Unlock()
	return errors.Join(kp.errs...)
}

// NewSaramaConfig builds the producer configuration used by KafkaDialer.
func NewSaramaConfig(cfg config.Kafka) *sarama.Config {
	sc := sarama.NewConfig()
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout > 0 {
		sc.Net.DialTimeout = timeout
		sc.Net.ReadTimeout = timeout
		sc.Net.WriteTimeout = timeout
	}
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	// A single dial attempt; the Publisher owns the retry policy.
	sc.Metadata.Retry.Max = 0
	return sc
}

// KafkaDialer returns a Dialer that opens an async producer against the
// configured brokers.
func KafkaDialer(cfg config.Kafka) Dialer {
	return func(ctx context.Context) (Producer, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := sarama.NewAsyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("connecting to %v: %w", cfg.Brokers, err)
		}
		return NewKafkaProducer(p), nil
	}
}

// Unreachable reports whether err means no broker could be reached.
func Unreachable(err error) bool {
	return errors.Is(err, sarama.ErrOutOfBrokers)
}
