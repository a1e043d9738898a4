// Package events announces committed datasets on NATS so loaders can pick up
// new manifests without polling the bucket.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bowerhall/graphcol/internal/graphcol"
	"github.com/bowerhall/graphcol/internal/logger"
)

// SubjectPrefix is prepended to the dataset name, with '/' mapped to '.'.
const SubjectPrefix = "graphcol.datasets."

// Committed is published after a manifest has been written.
type Committed struct {
	Dataset      string            `json:"dataset"`
	ManifestPath string            `json:"manifestPath"`
	TxID         string            `json:"tx"`
	Manifest     graphcol.Manifest `json:"manifest"`
}

// Subject returns the subject a dataset's events are published on.
func Subject(dataset string) string {
	return SubjectPrefix + strings.NewReplacer("/", ".", " ", "_", "*", "_", ">", "_").Replace(dataset) + ".committed"
}

// Publisher publishes Committed events on a NATS connection.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials url. The connection retries in the background if the server
// goes away.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("graphcol-loader"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}

	return &Publisher{nc: nc}, nil
}

// DatasetCommitted publishes ev and waits for the server to acknowledge the
// flush.
func (p *Publisher) DatasetCommitted(ctx context.Context, ev Committed) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	subject := Subject(ev.Dataset)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}

	logger.Debug("dataset event published", "subject", subject, "dataset", ev.Dataset)
	return nil
}

func (p *Publisher) Close() {
	p.nc.Close()
}
