package destination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/metrics"
)

// ElasticConfig configures an Elasticsearch destination, trimmed from
// internal/sinks/elasticsearch_sink.go's ElasticsearchConfig to the
// fields this archive destination actually needs.
type ElasticConfig struct {
	Hosts        []string      `yaml:"hosts"`
	IndexPrefix  string        `yaml:"index_prefix"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
}

type document struct {
	Timestamp float64 `json:"timestamp"`
	Path      string  `json:"path"`
	Sample    json.RawMessage
}

// MarshalJSON flattens document so the sample payload is spliced
// directly into the indexed document rather than nested under a key,
// matching how internal/sinks/elasticsearch_sink.go's createDocument
// produces a single flat record per log line.
func (d document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf(`{"timestamp":%s,"path":%q,"sample":`, formatFloat(d.Timestamp), d.Path))
	buf.Write(d.Sample)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func formatFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

// Elastic is a Destination that bulk-indexes records into
// Elasticsearch, adapted from ElasticsearchSink's batch-and-flush
// shape: records accumulate until BatchSize or BatchTimeout, then are
// shipped as a single _bulk request.
type Elastic struct {
	config ElasticConfig
	client *elasticsearch.Client
	log    *logrus.Logger

	queue  chan Record
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
}

// NewElastic builds an Elastic destination.
func NewElastic(config ElasticConfig, log *logrus.Logger) (*Elastic, error) {
	if len(config.Hosts) == 0 {
		return nil, fmt.Errorf("elastic destination: no hosts configured")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 200
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = 2 * time.Second
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: config.Hosts,
		Username:  config.Username,
		Password:  config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elastic destination: failed to create client: %w", err)
	}

	return &Elastic{
		config: config,
		client: client,
		log:    log,
		queue:  make(chan Record, config.BatchSize*4),
	}, nil
}

func (e *Elastic) Name() string { return "elastic:" + e.config.IndexPrefix }

func (e *Elastic) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isRunning {
		return fmt.Errorf("elastic destination %s already running", e.Name())
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.isRunning = true

	e.wg.Add(1)
	go e.batchLoop(runCtx)

	e.log.WithField("hosts", e.config.Hosts).Info("elastic destination started")
	return nil
}

func (e *Elastic) Stop() error {
	e.mu.Lock()
	if !e.isRunning {
		e.mu.Unlock()
		return nil
	}
	e.isRunning = false
	e.mu.Unlock()
	e.cancel()
	e.wg.Wait()
	return nil
}

// Send enqueues r for the next bulk flush.
func (e *Elastic) Send(r Record) error {
	select {
	case e.queue <- r:
		metrics.DestinationQueueDepth.WithLabelValues(e.Name()).Set(float64(len(e.queue)))
		return nil
	default:
		return fmt.Errorf("elastic destination %s: queue full", e.Name())
	}
}

func (e *Elastic) batchLoop(ctx context.Context) {
	defer e.wg.Done()
	batch := make([]Record, 0, e.config.BatchSize)
	timer := time.NewTimer(e.config.BatchTimeout)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := e.sendBatch(ctx, batch); err != nil {
			e.log.WithError(err).Error("elastic destination bulk send failed")
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case r := <-e.queue:
			batch = append(batch, r)
			if len(batch) >= e.config.BatchSize {
				flush()
				timer.Reset(e.config.BatchTimeout)
			}
		case <-timer.C:
			flush()
			timer.Reset(e.config.BatchTimeout)
		}
	}
}

func (e *Elastic) sendBatch(ctx context.Context, batch []Record) error {
	var buf bytes.Buffer
	indexName := e.config.IndexPrefix + "-" + time.Now().UTC().Format("2006.01.02")

	for _, r := range batch {
		action := fmt.Sprintf(`{"index":{"_index":%q}}`, indexName)
		buf.WriteString(action)
		buf.WriteByte('\n')

		doc := document{Timestamp: r.Timestamp, Path: r.Path, Sample: json.RawMessage(r.JSON)}
		docJSON, err := doc.MarshalJSON()
		if err != nil {
			return fmt.Errorf("elastic destination: marshal document: %w", err)
		}
		buf.Write(docJSON)
		buf.WriteByte('\n')
	}

	req := esapi.BulkRequest{Body: &buf}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("elastic destination: bulk request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elastic destination: bulk request returned %s", res.Status())
	}
	return nil
}
