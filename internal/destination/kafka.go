package destination

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/metrics"
)

// KafkaAuthConfig configures SASL authentication for a Kafka
// destination, grounded directly on internal/sinks/kafka_sink.go's
// config.Auth (same field set, same mechanism names).
type KafkaAuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Mechanism string `yaml:"mechanism"` // "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"
}

// KafkaConfig configures a Kafka destination, grounded on
// internal/sinks/kafka_sink.go's KafkaSinkConfig, trimmed to the
// fields the Hub's routing table actually drives.
type KafkaConfig struct {
	Brokers      []string        `yaml:"brokers"`
	Topic        string          `yaml:"topic"`
	Compression  string          `yaml:"compression"`
	RequiredAcks int16           `yaml:"required_acks"`
	QueueSize    int             `yaml:"queue_size"`
	FlushEvery   time.Duration   `yaml:"flush_every"`
	Auth         KafkaAuthConfig `yaml:"auth"`
}

// Kafka is a Destination that publishes records to an Apache Kafka
// topic via an async producer, adapted from KafkaSink in
// internal/sinks/kafka_sink.go (queue channel feeding a process loop,
// producer response loop draining Successes/Errors, breaker-guarded
// send).
type Kafka struct {
	config   KafkaConfig
	log      *logrus.Logger
	producer sarama.AsyncProducer
	breaker  *breaker

	queue  chan Record
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
}

// NewKafka builds a Kafka destination. The Sarama producer is created
// eagerly so configuration errors surface before Start.
func NewKafka(config KafkaConfig, log *logrus.Logger) (*Kafka, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka destination: no brokers configured")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("kafka destination: no topic configured")
	}

	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	if config.RequiredAcks != 0 {
		sc.Producer.RequiredAcks = sarama.RequiredAcks(config.RequiredAcks)
	}
	switch config.Compression {
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		sc.Producer.Compression = sarama.CompressionNone
	}
	if config.FlushEvery > 0 {
		sc.Producer.Flush.Frequency = config.FlushEvery
	}
	sc.Producer.Partitioner = sarama.NewHashPartitioner

	if config.Auth.Enabled {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User = config.Auth.Username
		sc.Net.SASL.Password = config.Auth.Password

		switch strings.ToUpper(config.Auth.Mechanism) {
		case "PLAIN":
			sc.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		case "SCRAM-SHA-256":
			sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &scramClient{HashGeneratorFcn: scramSHA256}
			}
		case "SCRAM-SHA-512":
			sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &scramClient{HashGeneratorFcn: scramSHA512}
			}
		}
	}

	producer, err := sarama.NewAsyncProducer(config.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka destination: failed to create producer: %w", err)
	}

	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 4096
	}

	return &Kafka{
		config:   config,
		log:      log,
		producer: producer,
		breaker:  newBreaker("kafka:"+config.Topic, log, 10, 2, 60*time.Second),
		queue:    make(chan Record, queueSize),
	}, nil
}

func (k *Kafka) Name() string { return "kafka:" + k.config.Topic }

func (k *Kafka) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.isRunning {
		return fmt.Errorf("kafka destination %s already running", k.Name())
	}
	runCtx, cancel := context.WithCancel(ctx)
	k.cancel = cancel
	k.isRunning = true

	k.wg.Add(2)
	go k.processLoop(runCtx)
	go k.handleResponses(runCtx)

	k.log.WithFields(logrus.Fields{"topic": k.config.Topic, "brokers": k.config.Brokers}).Info("kafka destination started")
	return nil
}

func (k *Kafka) Stop() error {
	k.mu.Lock()
	if !k.isRunning {
		k.mu.Unlock()
		return nil
	}
	k.isRunning = false
	k.mu.Unlock()

	k.cancel()
	k.wg.Wait()
	return k.producer.Close()
}

// Send enqueues r for asynchronous delivery. It never blocks
// indefinitely: a full queue is reported as an error to the caller,
// and the record is not queued.
func (k *Kafka) Send(r Record) error {
	select {
	case k.queue <- r:
		metrics.DestinationQueueDepth.WithLabelValues(k.Name()).Set(float64(len(k.queue)))
		return nil
	default:
		return fmt.Errorf("kafka destination %s: queue full", k.Name())
	}
}

func (k *Kafka) processLoop(ctx context.Context) {
	defer k.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-k.queue:
			msg := &sarama.ProducerMessage{
				Topic: k.config.Topic,
				Key:   sarama.StringEncoder(r.Path),
				Value: sarama.ByteEncoder(r.JSON),
			}
			err := k.breaker.Execute(func() error {
				select {
				case k.producer.Input() <- msg:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil {
				k.log.WithError(err).WithField("path", r.Path).Warn("kafka destination send failed")
			}
		}
	}
}

func (k *Kafka) handleResponses(ctx context.Context) {
	defer k.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-k.producer.Errors():
			if err != nil {
				k.log.WithError(err.Err).Error("kafka destination producer error")
			}
		case <-k.producer.Successes():
		}
	}
}
