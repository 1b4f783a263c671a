package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zexoverz/dominion-sub001/internal/audit"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
)

// AuditRepo держит отдельное соединение для журнала аудита: его отказ
// не должен конкурировать за пул с бизнес-транзакциями.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(connString string) *AuditRepo {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		// В main соединение проверяется через Ping
		log.Fatal(err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WriteBatch пишет пачку событий одним INSERT.
func (r *AuditRepo) WriteBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице audit_events
	numFields := 7
	placeholderStr := ""
	vals := make([]interface{}, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7)

		details, _ := json.Marshal(e.Details)

		vals = append(vals,
			e.ID, e.AgentID, e.Kind, e.Title, details, e.CostUsd, e.Timestamp,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO audit_events (id, agent_id, kind, title, details, cost_usd, timestamp) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.db.ExecContext(ctx, query, vals...)
	return err
}

// FetchLogs возвращает последние события с фильтрацией по агенту и виду.
func (r *AuditRepo) FetchLogs(ctx context.Context, agentID, kind string) ([]audit.Event, error) {
	query := `SELECT id, agent_id, kind, title, details, cost_usd, timestamp FROM audit_events`

	var conds []string
	var args []interface{}
	if agentID != "" {
		args = append(args, agentID)
		conds = append(conds, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	if kind != "" {
		args = append(args, kind)
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC LIMIT 100"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]audit.Event, 0)
	for rows.Next() {
		var e audit.Event
		var details []byte
		if err := rows.Scan(&e.ID, &e.AgentID, &e.Kind, &e.Title, &details, &e.CostUsd, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan audit event: %w", err)
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &e.Details)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
