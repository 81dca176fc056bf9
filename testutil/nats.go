package testutil

import (
	"context"
	"slices"
	"sync"
)

// Published is one message captured by MockNATSClient.
type Published struct {
	Subject string
	Data    []byte
}

// MockNATSClient captures publishes in arrival order so tests can check
// both the subject each line went to and the order lines left the sink.
type MockNATSClient struct {
	mu        sync.Mutex
	published []Published
	failWith  error
}

// NewMockNATSClient creates an empty recorder.
func NewMockNATSClient() *MockNATSClient {
	return &MockNATSClient{}
}

// Publish records a copy of data under subject, or returns the error set by
// FailWith. It has the natsclient.Client signature.
func (c *MockNATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.published = append(c.published, Published{Subject: subject, Data: slices.Clone(data)})
	return nil
}

// FailWith makes every later Publish return err until called with nil.
func (c *MockNATSClient) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = err
}

// Published returns every captured message in order.
func (c *MockNATSClient) Published() []Published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.published)
}

// GetMessages returns the payloads sent to subject, in order.
func (c *MockNATSClient) GetMessages(subject string) [][]byte {
	var out [][]byte
	for _, p := range c.Published() {
		if p.Subject == subject {
			out = append(out, p.Data)
		}
	}
	return out
}

// GetMessageCount returns how many payloads were sent to subject.
func (c *MockNATSClient) GetMessageCount(subject string) int {
	return len(c.GetMessages(subject))
}
