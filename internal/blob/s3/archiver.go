package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

// Archiver exports terminal orders and decision-log entries older than a
// cutoff to JSONL files in object storage. Deletion of the archived records
// from the primary store is intentionally NOT performed here; retention is
// an external policy applied after the archive has been verified.
type Archiver struct {
	writer    domain.BlobWriter
	orders    domain.OrderStore
	decisions domain.DecisionLogStore
}

// NewArchiver creates an Archiver over the given writer and stores.
func NewArchiver(writer domain.BlobWriter, orders domain.OrderStore, decisions domain.DecisionLogStore) *Archiver {
	return &Archiver{
		writer:    writer,
		orders:    orders,
		decisions: decisions,
	}
}

// ArchiveOrders uploads all terminal orders created before the cutoff to
// archive/orders/YYYY-MM.jsonl. The archival itself is recorded in the
// decision log. Returns the number of archived records.
func (a *Archiver) ArchiveOrders(ctx context.Context, before time.Time) (int64, error) {
	orders, err := a.orders.ListTerminalBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders query: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(orders)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders marshal: %w", err)
	}

	path := archivePath("orders", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive orders upload: %w", err)
	}

	count := int64(len(orders))

	if err := a.decisions.Append(ctx, domain.DecisionLogEntry{
		Event:     domain.DecisionEventArchived,
		CreatedAt: time.Now().UTC(),
		Detail: map[string]any{
			"kind":   "orders",
			"path":   path,
			"count":  count,
			"before": before.Format(time.RFC3339),
		},
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive orders decision log: %w", err)
	}

	return count, nil
}

// ArchiveDecisions uploads all decision-log entries created before the
// cutoff to archive/decisions/YYYY-MM.jsonl. Returns the number of archived
// records.
func (a *Archiver) ArchiveDecisions(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.decisions.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive decisions query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive decisions marshal: %w", err)
	}

	path := archivePath("decisions", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive decisions upload: %w", err)
	}

	return int64(len(entries)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice to newline-delimited JSON.
func marshalJSONL[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
