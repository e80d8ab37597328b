package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-video-hub/internal/model"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

const auditColumns = `action, occurred_at, actor_user_id, actor_username, actor_role, actor_ip,
	status, resource, details, error_text`

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	details, err := marshalDetails(entry.Details)
	if err != nil {
		return err
	}

	var actorID *int64
	if entry.Actor.UserID != 0 {
		actorID = &entry.Actor.UserID
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_entries (`+auditColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.Action, occurredAt(entry.OccurredAt),
		actorID, entry.Actor.Username, entry.Actor.Role, entry.Actor.IP,
		entry.Status, entry.Resource, details, entry.Error)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func marshalDetails(details any) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal audit details: %w", err)
	}
	return raw, nil
}

// occurredAt falls back to now for empty or unparseable timestamps.
func occurredAt(raw string) time.Time {
	if raw != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return parsed.UTC()
		}
	}
	return time.Now().UTC()
}

// auditFilter accumulates WHERE conditions with positional arguments.
type auditFilter struct {
	conds []string
	args  []any
}

func (f *auditFilter) add(format string, arg any) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, fmt.Sprintf(format, len(f.args)))
}

func (f *auditFilter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(f.conds, " AND ")
}

func buildAuditFilter(q model.AuditQuery) *auditFilter {
	f := &auditFilter{}
	if action := strings.TrimSpace(q.Action); action != "" {
		f.add("lower(action) = lower($%d)", action)
	}
	if q.ActorID != 0 {
		f.add("actor_user_id = $%d", q.ActorID)
	}
	if status := strings.TrimSpace(q.Status); status != "" {
		f.add("lower(status) = lower($%d)", status)
	}
	if from := strings.TrimSpace(q.From); from != "" {
		f.add("occurred_at >= $%d::timestamptz", from)
	}
	if to := strings.TrimSpace(q.To); to != "" {
		f.add("occurred_at <= $%d::timestamptz", to)
	}
	return f
}

func normalizePage(q model.AuditQuery) (page, limit int) {
	page, limit = q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	return page, limit
}

func (r *AuditRepository) Query(ctx context.Context, q model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	page, limit := normalizePage(q)
	filter := buildAuditFilter(q)

	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM audit_entries "+filter.where(), filter.args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count audit entries: %w", err)
	}

	meta := model.Meta{Page: page, Limit: limit, Total: total, TotalPages: (total + limit - 1) / limit}

	n := len(filter.args)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM audit_entries %s
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, auditColumns, filter.where(), n+1, n+2),
		append(filter.args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, scanAuditEntry)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("scan audit entries: %w", err)
	}
	return entries, meta, nil
}

func scanAuditEntry(row pgx.CollectableRow) (model.AuditEntry, error) {
	var (
		e       model.AuditEntry
		at      time.Time
		actorID *int64
		details []byte
	)
	if err := row.Scan(
		&e.Action, &at,
		&actorID, &e.Actor.Username, &e.Actor.Role, &e.Actor.IP,
		&e.Status, &e.Resource, &details, &e.Error,
	); err != nil {
		return e, err
	}

	e.OccurredAt = at.UTC().Format(time.RFC3339Nano)
	if actorID != nil {
		e.Actor.UserID = *actorID
	}
	if len(details) > 0 {
		var decoded any
		if json.Unmarshal(details, &decoded) == nil {
			e.Details = decoded
		}
	}
	return e, nil
}
