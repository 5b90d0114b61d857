// Package pipeline orchestrates the bulk ingestion and live migration jobs
// over the export reader, the Parquet stores and the publication mirror.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/couchcryptid/gauge-data-etl/internal/adapter/mirror"
	"github.com/couchcryptid/gauge-data-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
	"github.com/couchcryptid/gauge-data-etl/internal/observability"
)

// Notifier publishes store updates to downstream consumers.
type Notifier interface {
	Notify(ctx context.Context, updates []domain.StoreUpdate) error
}

// NopNotifier discards updates. It is used when notifications are disabled.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, []domain.StoreUpdate) error { return nil }

// publisher carries the output side shared by both jobs: the store layout,
// the optional publication mirror and update notifications.
type publisher struct {
	layout      parquetstore.Layout
	publishRoot string
	notifier    Notifier
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// mirrorFile copies one artifact under the layout root to the same relative
// path under the publication root. It is a no-op without a publication root.
func (p *publisher) mirrorFile(path string) error {
	if p.publishRoot == "" {
		return nil
	}
	rel, err := p.layout.Rel(path)
	if err != nil {
		return fmt.Errorf("mirror %s: %w", path, err)
	}
	if err := mirror.CopyFile(path, filepath.Join(p.publishRoot, rel)); err != nil {
		return fmt.Errorf("mirror %s: %w", rel, err)
	}
	return nil
}

// mirrorAll copies the whole layout root to the publication root.
func (p *publisher) mirrorAll() (int, error) {
	if p.publishRoot == "" {
		return 0, nil
	}
	return mirror.CopyTree(p.layout.Root, p.publishRoot)
}

// notify publishes updates. Failures are logged and not returned: the stores
// are already written when notifications go out.
func (p *publisher) notify(ctx context.Context, updates []domain.StoreUpdate) {
	if len(updates) == 0 {
		return
	}
	if err := p.notifier.Notify(ctx, updates); err != nil {
		p.logger.Error("store update notification failed", "error", err, "count", len(updates))
		return
	}
	p.metrics.NotificationsSent.Add(float64(len(updates)))
}

func (p *publisher) relPath(path string) string {
	if rel, err := p.layout.Rel(path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
