package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jurisrank/jurisapi/internal/model"
	_ "github.com/mattn/go-sqlite3"
)

// Store 决策审计存储
type Store struct {
	db *sql.DB
}

// New 创建存储实例
func New(dbPath string) (*Store, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

// migrate 数据库迁移
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decision_logs (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		identity TEXT NOT NULL,
		tier TEXT NOT NULL,
		route TEXT NOT NULL,
		method TEXT,
		allowed INTEGER NOT NULL,
		limit_value INTEGER,
		remaining INTEGER,
		retry_after INTEGER,
		client_ip TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decision_logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_decisions_identity ON decision_logs(identity);
	CREATE INDEX IF NOT EXISTS idx_decisions_route ON decision_logs(route);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// === Decision Logs ===

// SaveDecision 保存决策日志
func (s *Store) SaveDecision(log *model.DecisionLog) error {
	_, err := s.db.Exec(`
		INSERT INTO decision_logs (id, timestamp, identity, tier, route, method,
			allowed, limit_value, remaining, retry_after, client_ip)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.ID, log.Timestamp, log.Identity, string(log.Tier), log.Route, log.Method,
		log.Allowed, log.Limit, log.Remaining, log.RetryAfter, log.ClientIP)
	return err
}

// QueryDecisions 查询决策日志
func (s *Store) QueryDecisions(query *model.DecisionQuery) ([]*model.DecisionLog, error) {
	q := "SELECT id, timestamp, identity, tier, route, method, allowed, limit_value, remaining, retry_after, client_ip FROM decision_logs WHERE 1=1"
	args := []any{}

	if query.Identity != "" {
		q += " AND identity = ?"
		args = append(args, query.Identity)
	}
	if query.Route != "" {
		q += " AND route = ?"
		args = append(args, query.Route)
	}
	if query.Tier != "" {
		q += " AND tier = ?"
		args = append(args, query.Tier)
	}
	if query.Allowed != nil {
		q += " AND allowed = ?"
		args = append(args, *query.Allowed)
	}
	if !query.StartTime.IsZero() {
		q += " AND timestamp >= ?"
		args = append(args, query.StartTime)
	}
	if !query.EndTime.IsZero() {
		q += " AND timestamp <= ?"
		args = append(args, query.EndTime)
	}

	q += " ORDER BY timestamp DESC"

	if query.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", query.Limit)
	} else {
		q += " LIMIT 100"
	}
	if query.Offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*model.DecisionLog
	for rows.Next() {
		var log model.DecisionLog
		var tier string
		if err := rows.Scan(&log.ID, &log.Timestamp, &log.Identity, &tier, &log.Route, &log.Method,
			&log.Allowed, &log.Limit, &log.Remaining, &log.RetryAfter, &log.ClientIP); err != nil {
			return nil, err
		}
		log.Tier = model.Tier(tier)
		logs = append(logs, &log)
	}
	return logs, nil
}

// GetDailyStats 获取每日决策统计
func (s *Store) GetDailyStats(days int) ([]*model.DailyDecisionStats, error) {
	rows, err := s.db.Query(`
		SELECT
			date(timestamp) as date,
			COUNT(*) as total_requests,
			ROUND(SUM(CASE WHEN allowed = 1 THEN 1 ELSE 0 END) * 100.0 / COUNT(*), 2) as allowed_rate,
			SUM(CASE WHEN allowed = 0 THEN 1 ELSE 0 END) as violations,
			COUNT(DISTINCT identity) as unique_clients
		FROM decision_logs
		WHERE timestamp >= date('now', ?)
		GROUP BY date(timestamp)
		ORDER BY date DESC
	`, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*model.DailyDecisionStats
	for rows.Next() {
		var st model.DailyDecisionStats
		if err := rows.Scan(&st.Date, &st.TotalRequests, &st.AllowedRate, &st.Violations, &st.UniqueClients); err != nil {
			return nil, err
		}
		stats = append(stats, &st)
	}
	return stats, nil
}

// GetRouteStats 获取按路由的决策统计
func (s *Store) GetRouteStats(days int) ([]*model.RouteDecisionStats, error) {
	rows, err := s.db.Query(`
		SELECT
			route,
			COUNT(*) as total_requests,
			ROUND(SUM(CASE WHEN allowed = 1 THEN 1 ELSE 0 END) * 100.0 / COUNT(*), 2) as allowed_rate,
			SUM(CASE WHEN allowed = 0 THEN 1 ELSE 0 END) as violations
		FROM decision_logs
		WHERE timestamp >= date('now', ?)
		GROUP BY route
		ORDER BY total_requests DESC
	`, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*model.RouteDecisionStats
	for rows.Next() {
		var st model.RouteDecisionStats
		if err := rows.Scan(&st.Route, &st.TotalRequests, &st.AllowedRate, &st.Violations); err != nil {
			return nil, err
		}
		stats = append(stats, &st)
	}
	return stats, nil
}

// CleanOldLogs 清理过期日志
func (s *Store) CleanOldLogs(retentionDays int) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM decision_logs
		WHERE timestamp < date('now', ?)
	`, fmt.Sprintf("-%d days", retentionDays))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
