package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/c360/sensorstreams/errors"
	"github.com/c360/sensorstreams/pkg/timestamp"
	"github.com/c360/sensorstreams/record"
)

// Client is the publishing side of natsclient.Client.
type Client interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// PublisherDeps holds runtime dependencies for the publisher
type PublisherDeps struct {
	Config Config
	Client Client
	Logger *slog.Logger // optional
}

// Stats is a snapshot of publisher counters.
type Stats struct {
	Published int64
	Failures  int64
}

// Publisher implements file.Mirror on top of a NATS client.
type Publisher struct {
	cfg    Config
	client Client
	logger *slog.Logger

	published atomic.Int64
	failures  atomic.Int64
	failing   atomic.Bool
}

// jsonPayload is the body published in FormatJSON.
type jsonPayload struct {
	Source    string `json:"source"`
	Schema    string `json:"schema"`
	Timestamp int64  `json:"timestamp_us"`
	Time      string `json:"time"`
	Line      string `json:"line"`
}

// NewPublisher creates a publisher
func NewPublisher(deps PublisherDeps) (*Publisher, error) {
	if deps.Client == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Publisher", "NewPublisher", "client required")
	}

	cfg := deps.Config.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "nats-mirror")
	}

	return &Publisher{
		cfg:    cfg,
		client: deps.Client,
		logger: logger,
	}, nil
}

// Subject returns the subject lines from source are published on.
// Characters that are not valid in a subject token become '_'.
func (p *Publisher) Subject(source string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, source)
	if token == "" {
		token = "_"
	}
	return p.cfg.SubjectPrefix + "." + token
}

// Publish sends msg to its source subject. Errors are returned to the caller
// for counting; the publisher only logs the first failure of a streak.
func (p *Publisher) Publish(ctx context.Context, msg record.Message) error {
	data, err := p.encode(msg)
	if err != nil {
		p.fail(msg, err)
		return errors.WrapInvalid(err, "Publisher", "Publish", "encode payload")
	}

	if err := p.client.Publish(ctx, p.Subject(msg.Source), data); err != nil {
		p.fail(msg, err)
		return errors.WrapTransient(err, "Publisher", "Publish", "publish line")
	}

	p.published.Add(1)
	if p.failing.Swap(false) {
		p.logger.Info("NATS mirror recovered", "failures", p.failures.Load())
	}
	return nil
}

func (p *Publisher) encode(msg record.Message) ([]byte, error) {
	if p.cfg.Format != FormatJSON {
		return []byte(msg.Line), nil
	}
	return json.Marshal(jsonPayload{
		Source:    msg.Source,
		Schema:    msg.Schema,
		Timestamp: msg.Timestamp,
		Time:      timestamp.FormatRFC3339(msg.Timestamp),
		Line:      msg.Line,
	})
}

func (p *Publisher) fail(msg record.Message, err error) {
	p.failures.Add(1)
	if !p.failing.Swap(true) {
		p.logger.Warn("NATS mirror failing", "source", msg.Source, "error", err)
		return
	}
	p.logger.Debug("NATS mirror publish failed", "source", msg.Source, "error", err)
}

// Stats returns the publisher counters.
func (p *Publisher) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Failures:  p.failures.Load(),
	}
}
