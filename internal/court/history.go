package court

import (
	"context"

	"github.com/rogersf/court-engine/internal/domain"
)

var errNoStore = domain.NewGameError(domain.ErrStoreQuery.Code, "no store configured")

// Events returns the session's events after sinceSeq. The store is the
// source when configured, which also covers closed sessions; otherwise the
// live session's in-memory history is used.
func (m *Manager) Events(ctx context.Context, id string, sinceSeq int64) ([]domain.SessionEvent, error) {
	if m.db != nil {
		if _, err := m.repos.Sessions.GetByID(ctx, m.db.DB, id); err != nil {
			return nil, err
		}
		events, err := m.repos.Events.ListBySession(ctx, m.db.DB, id, sinceSeq)
		if err != nil {
			return nil, err
		}
		if events == nil {
			events = []domain.SessionEvent{}
		}
		return events, nil
	}

	e, err := m.get(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := []domain.SessionEvent{}
	for _, ev := range e.history {
		if ev.SeqNo > sinceSeq {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Sessions lists stored session headers, most recent first.
func (m *Manager) Sessions(ctx context.Context, limit int) ([]domain.SessionRecord, error) {
	if m.db == nil {
		return nil, errNoStore
	}
	if limit <= 0 {
		limit = 50
	}
	recs, err := m.repos.Sessions.ListRecent(ctx, m.db.DB, limit)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []domain.SessionRecord{}
	}
	return recs, nil
}

// Record returns the stored header of a session.
func (m *Manager) Record(ctx context.Context, id string) (*domain.SessionRecord, error) {
	if m.db == nil {
		return nil, errNoStore
	}
	return m.repos.Sessions.GetByID(ctx, m.db.DB, id)
}

// Snapshots returns the start-of-day snapshots of a session.
func (m *Manager) Snapshots(ctx context.Context, id string) ([]domain.DaySnapshot, error) {
	if m.db == nil {
		return nil, errNoStore
	}
	snaps, err := m.repos.Snapshots.ListBySession(ctx, m.db.DB, id)
	if err != nil {
		return nil, err
	}
	if snaps == nil {
		snaps = []domain.DaySnapshot{}
	}
	return snaps, nil
}

// LatestSnapshot returns the most recent day snapshot, or nil when none
// has been taken.
func (m *Manager) LatestSnapshot(ctx context.Context, id string) (*domain.DaySnapshot, error) {
	if m.db == nil {
		return nil, errNoStore
	}
	return m.repos.Snapshots.GetLatest(ctx, m.db.DB, id)
}

// Audit returns the audit trail of a session.
func (m *Manager) Audit(ctx context.Context, id string) ([]domain.AuditRecord, error) {
	if m.db == nil {
		return nil, errNoStore
	}
	recs, err := m.repos.Audit.ListBySession(ctx, m.db.DB, id)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []domain.AuditRecord{}
	}
	return recs, nil
}

// Ledger returns the applied deltas of a session and, per field, the totals
// grouped by source.
func (m *Manager) Ledger(ctx context.Context, id string) (*Ledger, error) {
	if m.db == nil {
		return nil, errNoStore
	}
	deltas, err := m.repos.Deltas.ListBySession(ctx, m.db.DB, id)
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		Deltas: deltas,
		Totals: make(map[domain.Field]map[string]float64),
	}
	if l.Deltas == nil {
		l.Deltas = []domain.DeltaRecord{}
	}
	for _, f := range []domain.Field{domain.FieldMoney, domain.FieldLove, domain.FieldRespect} {
		sums, err := m.repos.Deltas.SumBySource(ctx, m.db.DB, id, f)
		if err != nil {
			return nil, err
		}
		l.Totals[f] = sums
	}
	return l, nil
}

// Ledger is the stat change history of a session.
type Ledger struct {
	Deltas []domain.DeltaRecord                `json:"deltas"`
	Totals map[domain.Field]map[string]float64 `json:"totals"`
}
