// Package court owns the live sessions of a server. It serializes actions per
// session and fans every result out to the store, the journal and any
// subscribers.
package court

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rogersf/court-engine/internal/catalog"
	"github.com/rogersf/court-engine/internal/domain"
	"github.com/rogersf/court-engine/internal/game"
	"github.com/rogersf/court-engine/internal/guard"
	"github.com/rogersf/court-engine/internal/journal"
	"github.com/rogersf/court-engine/internal/random"
	"github.com/rogersf/court-engine/internal/store"
)

// subscriberBuffer is the per-subscriber channel capacity. Events are dropped
// for a subscriber whose buffer is full.
const subscriberBuffer = 64

// Options configures a Manager. DB, Guard and JournalDir are optional.
type Options struct {
	Catalog    *catalog.Catalog
	Rules      game.Rules
	Seed       int64
	DB         *store.DB
	Guard      *guard.Guard
	JournalDir string
	Logger     *log.Logger
}

// Overrides adjusts the base rules for one session. Nil fields keep the
// server's value.
type Overrides struct {
	Seed               *int64   `json:"seed,omitempty"`
	RulerName          *string  `json:"ruler_name,omitempty"`
	Title              *string  `json:"title,omitempty"`
	TaxRate            *float64 `json:"tax_rate,omitempty"`
	StartingMoney      *float64 `json:"starting_money,omitempty"`
	CourtCapacity      *int     `json:"court_capacity,omitempty"`
	ActionsPerDay      *int     `json:"actions_per_day,omitempty"`
	WaitLimit          *int     `json:"wait_limit,omitempty"`
	MoneyLossInclusive *bool    `json:"money_loss_inclusive,omitempty"`
}

func (o *Overrides) apply(r game.Rules) game.Rules {
	if o == nil {
		return r
	}
	if o.RulerName != nil {
		r.RulerName = *o.RulerName
	}
	if o.Title != nil {
		r.Title = *o.Title
	}
	if o.TaxRate != nil {
		r.TaxRate = *o.TaxRate
	}
	if o.StartingMoney != nil {
		r.StartingMoney = *o.StartingMoney
	}
	if o.CourtCapacity != nil {
		r.CourtCapacity = *o.CourtCapacity
	}
	if o.ActionsPerDay != nil {
		r.ActionsPerDay = *o.ActionsPerDay
	}
	if o.WaitLimit != nil {
		r.WaitLimit = *o.WaitLimit
	}
	if o.MoneyLossInclusive != nil {
		r.MoneyLossInclusive = *o.MoneyLossInclusive
	}
	return r
}

// ActionResult is returned by every state-changing call.
type ActionResult struct {
	View   game.View    `json:"view"`
	Report *game.Report `json:"report"`
}

// Manager owns the live sessions.
type Manager struct {
	cat     *catalog.Catalog
	rules   game.Rules
	seed    int64
	db      *store.DB
	repos   store.Repos
	guard   *guard.Guard
	journal journal.Dir
	logger  *log.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	session *game.Session
	seq     int64
	history []domain.SessionEvent
	writer  *journal.Writer
	subs    map[int]chan domain.SessionEvent
	nextSub int
	closed  bool
	// released is set once a finished session has given back its guard slot.
	released bool
}

// NewManager validates the options and returns an empty Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Catalog == nil || opts.Catalog.Len() == 0 {
		return nil, domain.ErrCatalogEmpty
	}
	if err := opts.Rules.Validate(); err != nil {
		return nil, err
	}
	if opts.Guard == nil {
		opts.Guard = guard.NewGuard(guard.GuardConfig{})
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	m := &Manager{
		cat:      opts.Catalog,
		rules:    opts.Rules,
		seed:     opts.Seed,
		db:       opts.DB,
		guard:    opts.Guard,
		journal:  journal.Dir(opts.JournalDir),
		logger:   opts.Logger,
		sessions: make(map[string]*entry),
	}
	if m.db != nil {
		m.repos = m.db.Repos()
	}
	return m, nil
}

// Catalog returns the catalog sessions draw petitions from.
func (m *Manager) Catalog() *catalog.Catalog { return m.cat }

// Live returns the ids of the live sessions, sorted.
func (m *Manager) Live() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Create starts a new session and opens its first day.
func (m *Manager) Create(ctx context.Context, o *Overrides) (*ActionResult, error) {
	rules := o.apply(m.rules)
	seed := m.seed
	if o != nil && o.Seed != nil {
		seed = *o.Seed
	}

	id := uuid.NewString()
	if err := m.guard.Admit(id); err != nil {
		return nil, err
	}

	rng, seed, err := random.NewRand(seed)
	if err != nil {
		m.guard.Release(id)
		return nil, fmt.Errorf("create session: %w", err)
	}
	sess, err := game.NewSession(id, rules, m.cat, rng, m.logger)
	if err != nil {
		m.guard.Release(id)
		return nil, err
	}

	e := &entry{
		session: sess,
		subs:    make(map[int]chan domain.SessionEvent),
	}
	if m.journal != "" {
		e.writer = m.journal.Open(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rep, err := sess.Start()
	if err != nil {
		m.guard.Release(id)
		return nil, err
	}

	now := time.Now().Unix()
	if m.db != nil {
		rec := domain.SessionRecord{
			SessionID:     id,
			Phase:         sess.Phase(),
			Seed:          seed,
			CatalogDigest: m.cat.Digest(),
			CreatedAtUnix: now,
			UpdatedAtUnix: now,
		}
		if err := m.createRecord(ctx, rec); err != nil {
			m.logf(id, "store session: %v", err)
		}
	}

	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()

	started := pendingEvent{
		Type: domain.EventSessionStarted,
		Day:  0,
		Payload: StartedPayload{
			Seed:          seed,
			CatalogDigest: m.cat.Digest(),
			Rules:         rules,
		},
	}
	events := append([]pendingEvent{started}, dayEvents(rep, sess.Status())...)
	m.commit(ctx, e, events, rep)
	m.releaseFinished(id, e)

	m.logf(id, "created (seed %d, %d petitions)", seed, m.cat.Len())
	return &ActionResult{View: sess.View(), Report: rep}, nil
}

// View returns the current picture of a live session.
func (m *Manager) View(id string) (game.View, error) {
	e, err := m.get(id)
	if err != nil {
		return game.View{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.View(), nil
}

// Choice settles a court petition.
func (m *Manager) Choice(ctx context.Context, id string, petitionID, choiceIndex int) (*ActionResult, error) {
	return m.act(ctx, id, "choice", func(e *entry) (*game.Report, []pendingEvent, error) {
		rep, err := e.session.SelectChoice(petitionID, choiceIndex)
		if err != nil {
			return nil, nil, err
		}
		status := e.session.Status()
		events := []pendingEvent{{
			Type: domain.EventChoiceResolved,
			Day:  rep.Day,
			Payload: ChoicePayload{
				PetitionID:  petitionID,
				ChoiceIndex: choiceIndex,
				Resolved:    rep.Resolved,
				Deltas:      rep.Deltas,
				Issues:      rep.Issues,
				Status:      status,
			},
		}}
		return rep, append(events, gameOverEvents(rep)...), nil
	})
}

// Advance ends the current day.
func (m *Manager) Advance(ctx context.Context, id string) (*ActionResult, error) {
	return m.act(ctx, id, "advance", func(e *entry) (*game.Report, []pendingEvent, error) {
		rep, err := e.session.AdvanceDay()
		if err != nil {
			return nil, nil, err
		}
		return rep, dayEvents(rep, e.session.Status()), nil
	})
}

// SetTax changes the tax rate collected from the next day on.
func (m *Manager) SetTax(ctx context.Context, id string, rate float64) (*ActionResult, error) {
	return m.act(ctx, id, "tax", func(e *entry) (*game.Report, []pendingEvent, error) {
		if err := e.session.SetTaxRate(rate); err != nil {
			return nil, nil, err
		}
		status := e.session.Status()
		rep := &game.Report{Day: status.Day, Deltas: []domain.AppliedDelta{}}
		return rep, []pendingEvent{{
			Type:    domain.EventTaxRateChanged,
			Day:     status.Day,
			Payload: TaxRatePayload{Rate: rate, Status: status},
		}}, nil
	})
}

// Close ends a live session and frees its slot.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	status := e.session.Status()
	m.commit(ctx, e, []pendingEvent{{
		Type:    domain.EventSessionClosed,
		Day:     status.Day,
		Payload: ClosedPayload{Phase: e.session.Phase(), Status: status},
	}}, nil)

	e.closed = true
	for sid, ch := range e.subs {
		close(ch)
		delete(e.subs, sid)
	}
	if e.writer != nil {
		if err := e.writer.Close(); err != nil {
			m.logf(id, "close journal: %v", err)
		}
	}
	m.guard.Release(id)
	m.logf(id, "closed on day %d", status.Day)
	return nil
}

// Shutdown closes every live session.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, id := range m.Live() {
		if err := m.Close(ctx, id); err != nil {
			m.logf(id, "shutdown: %v", err)
		}
	}
}

// Subscribe returns a channel of the session's events from now on and a
// cancel function. The channel is closed when the session closes.
func (m *Manager) Subscribe(id string) (<-chan domain.SessionEvent, func(), error) {
	e, err := m.get(id)
	if err != nil {
		return nil, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, nil, domain.ErrSessionNotFound
	}

	sid := e.nextSub
	e.nextSub++
	ch := make(chan domain.SessionEvent, subscriberBuffer)
	e.subs[sid] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if c, ok := e.subs[sid]; ok {
				close(c)
				delete(e.subs, sid)
			}
		})
	}
	return ch, cancel, nil
}

func (m *Manager) get(id string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return e, nil
}

type actionFunc func(e *entry) (*game.Report, []pendingEvent, error)

// act runs one action under the session lock. Rejected actions are audited
// and leave no events behind.
func (m *Manager) act(ctx context.Context, id, action string, fn actionFunc) (*ActionResult, error) {
	e, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if err := m.guard.CheckRateLimit(id); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, domain.ErrSessionNotFound
	}

	rep, events, err := fn(e)
	if err != nil {
		m.audit(ctx, id, "action", "rejected_"+action, "info", map[string]string{"error": err.Error()})
		return nil, err
	}
	m.commit(ctx, e, events, rep)
	m.releaseFinished(id, e)
	return &ActionResult{View: e.session.View(), Report: rep}, nil
}

// releaseFinished frees the guard slot of a session that has reached
// GameOver. The session stays readable until it is closed. Callers hold e.mu.
func (m *Manager) releaseFinished(id string, e *entry) {
	if e.released || e.session.Phase() != domain.PhaseGameOver {
		return
	}
	e.released = true
	m.guard.Release(id)
	m.logf(id, "game over, session slot released")
}

func (m *Manager) logf(id, format string, args ...any) {
	m.logger.Printf("court: session %s: "+format, append([]any{id}, args...)...)
}

// pendingEvent is an event before it has been given a sequence number.
type pendingEvent struct {
	Type    string
	Day     int
	Payload any
}

// commit numbers the events and writes them to the store, the journal and
// the subscribers. Persistence failures are logged; the game state stands.
func (m *Manager) commit(ctx context.Context, e *entry, pending []pendingEvent, rep *game.Report) {
	id := e.session.ID
	now := time.Now().Unix()

	events := make([]domain.SessionEvent, 0, len(pending))
	for _, p := range pending {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			m.logf(id, "marshal %s: %v", p.Type, err)
			payload = []byte("{}")
		}
		e.seq++
		events = append(events, domain.SessionEvent{
			SessionID:   id,
			SeqNo:       e.seq,
			Day:         p.Day,
			EventType:   p.Type,
			PayloadJSON: string(payload),
			CreatedAt:   now,
		})
	}
	e.history = append(e.history, events...)

	if m.db != nil && len(events) > 0 {
		if err := m.persist(ctx, e, events, rep, now); err != nil {
			m.logf(id, "persist: %v", err)
		}
		if rep != nil {
			for _, issue := range rep.Issues {
				m.audit(ctx, id, "data", "consequence_issue", "warn", map[string]any{
					"day":   rep.Day,
					"issue": issue,
				})
			}
		}
	}

	if e.writer != nil {
		for _, ev := range events {
			je := journal.Entry{
				SessionID: id,
				Seq:       ev.SeqNo,
				Day:       ev.Day,
				Type:      ev.EventType,
				Payload:   json.RawMessage(ev.PayloadJSON),
				At:        ev.CreatedAt,
			}
			if err := e.writer.Write(je); err != nil {
				m.logf(id, "journal: %v", err)
				break
			}
		}
	}

	for _, ev := range events {
		for _, ch := range e.subs {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

func (m *Manager) persist(ctx context.Context, e *entry, events []domain.SessionEvent, rep *game.Report, now int64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		if err := m.repos.Events.AppendTx(ctx, tx, ev); err != nil {
			return err
		}
	}

	last := events[len(events)-1]
	if rep != nil && len(rep.Deltas) > 0 {
		records := make([]domain.DeltaRecord, len(rep.Deltas))
		for i, d := range rep.Deltas {
			records[i] = domain.DeltaRecord{
				SessionID: e.session.ID,
				SeqNo:     last.SeqNo,
				Day:       rep.Day,
				Field:     d.Field,
				Before:    d.Before,
				After:     d.After,
				Delta:     d.Delta,
				Source:    d.Source,
				CreatedAt: now,
			}
		}
		if err := m.repos.Deltas.CreateTx(ctx, tx, records); err != nil {
			return err
		}
	}

	for _, ev := range events {
		if ev.EventType != domain.EventDayAdvanced {
			continue
		}
		snap, err := snapshot(e.session, now)
		if err != nil {
			return err
		}
		if err := m.repos.Snapshots.SaveTx(ctx, tx, snap); err != nil {
			return err
		}
	}

	rec := domain.SessionRecord{
		SessionID:     e.session.ID,
		Phase:         e.session.Phase(),
		Day:           e.session.Status().Day,
		LastEventSeq:  last.SeqNo,
		UpdatedAtUnix: now,
	}
	if out := e.session.Outcome(); out != nil {
		rec.Result = string(out.Result)
		rec.Cause = out.Cause
	}
	if err := m.repos.Sessions.UpdateTx(ctx, tx, rec); err != nil {
		return err
	}

	return tx.Commit()
}

func (m *Manager) createRecord(ctx context.Context, rec domain.SessionRecord) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := m.repos.Sessions.CreateTx(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) audit(ctx context.Context, id, category, action, severity string, detail any) {
	if m.db == nil {
		return
	}
	err := m.repos.Audit.Record(ctx, m.db.DB, domain.AuditRecord{
		ID:         uuid.NewString(),
		SessionID:  id,
		Category:   category,
		Action:     action,
		DetailJSON: mustJSON(detail),
		Severity:   severity,
		CreatedAt:  time.Now().Unix(),
	})
	if err != nil {
		m.logf(id, "audit %s: %v", action, err)
	}
}

// snapshot captures the session view at the start of the current day.
func snapshot(s *game.Session, now int64) (domain.DaySnapshot, error) {
	data, err := json.Marshal(s.View())
	if err != nil {
		return domain.DaySnapshot{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	sum := sha256.Sum256(data)
	return domain.DaySnapshot{
		SessionID:    s.ID,
		Day:          s.Status().Day,
		SnapshotJSON: string(data),
		Checksum:     hex.EncodeToString(sum[:]),
		CreatedAt:    now,
	}, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
