package auditlog

import (
	"context"
	"strings"
	"time"

	"github.com/aim840912/haode-api/internal/domain/audit"
	"github.com/aim840912/haode-api/internal/storage"
	"github.com/aim840912/haode-api/pkg/logger"
)

// DedupWindow suppresses repeated view-class records from the same actor on
// the same resource.
const DedupWindow = 5 * time.Minute

// Service records the append-only trail of administrative actions.
type Service struct {
	store storage.AuditStore
	log   *logger.Logger
	now   func() time.Time
}

// New constructs an audit service.
func New(store storage.AuditStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auditlog")
	}
	return &Service{store: store, log: log, now: time.Now}
}

// viewAction reports whether the action is a read that should be deduped.
func viewAction(action string) bool {
	return action == "view" || action == "list" || strings.HasPrefix(action, "view_")
}

// Record appends an entry. View-class actions repeated by the same actor on
// the same resource within the dedup window are skipped; the returned bool
// reports whether the entry was written.
func (s *Service) Record(ctx context.Context, entry audit.Entry) (audit.Entry, bool, error) {
	entry.Action = strings.TrimSpace(entry.Action)
	if entry.Action == "" || entry.ActorID == "" {
		// Best-effort trail; unattributable records are dropped rather
		// than failing the request that triggered them.
		return audit.Entry{}, false, nil
	}

	if viewAction(entry.Action) {
		last, err := s.store.LastAuditEntry(ctx, entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID)
		if err == nil && s.now().UTC().Sub(last.CreatedAt) < DedupWindow {
			return last, false, nil
		}
	}

	entry.CreatedAt = s.now().UTC()
	written, err := s.store.CreateAuditEntry(ctx, entry)
	if err != nil {
		return audit.Entry{}, false, err
	}
	return written, true, nil
}

// List returns entries matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	return s.store.ListAuditEntries(ctx, filter)
}

// Stats aggregates entry counts per action and resource type over a window.
func (s *Service) Stats(ctx context.Context, since, until time.Time) (audit.Stats, error) {
	if until.IsZero() {
		until = s.now().UTC()
	}
	if since.IsZero() {
		since = until.Add(-24 * time.Hour)
	}

	entries, err := s.store.ListAuditEntries(ctx, audit.Filter{Since: since, Until: until, Limit: 10000})
	if err != nil {
		return audit.Stats{}, err
	}

	stats := audit.Stats{
		ByAction:   make(map[string]int),
		ByResource: make(map[string]int),
		Since:      since,
		Until:      until,
	}
	for _, entry := range entries {
		stats.Total++
		stats.ByAction[entry.Action]++
		stats.ByResource[entry.ResourceType]++
	}
	return stats, nil
}

// Sweep removes entries older than the retention period and returns the
// number removed.
func (s *Service) Sweep(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-retention)
	removed, err := s.store.DeleteAuditEntriesBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.WithField("removed", removed).Info("audit retention sweep")
	}
	return removed, nil
}
