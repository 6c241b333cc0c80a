package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trade-exec/internal/exchange"
	"trade-exec/internal/order"
)

// Journal 记录交易操作的状态流转与回执。记账失败只告警不阻断
// 交易主流程。
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS operations (
    id          TEXT PRIMARY KEY,
    symbol      TEXT NOT NULL,
    side        TEXT NOT NULL,
    market_type TEXT NOT NULL,
    state       TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS order_receipts (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    operation_id    TEXT NOT NULL REFERENCES operations(id),
    order_id        TEXT NOT NULL,
    client_order_id TEXT NOT NULL DEFAULT '',
    symbol          TEXT NOT NULL,
    side            TEXT NOT NULL,
    amount          REAL NOT NULL,
    price           REAL NOT NULL,
    filled          REAL NOT NULL,
    status          TEXT NOT NULL,
    created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_receipts_operation ON order_receipts(operation_id);
`

// OperationRecord 为一次交易操作的持久化快照。
type OperationRecord struct {
	ID         string
	Symbol     string
	Side       string
	MarketType string
	State      order.State
	Detail     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewJournal 构造操作日志并初始化表结构。
func NewJournal(store *Store, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := store.DB().Exec(journalSchema); err != nil {
		return nil, fmt.Errorf("初始化操作日志表失败: %w", err)
	}
	return &Journal{db: store.DB(), logger: logger}, nil
}

// BeginOperation 登记一次新操作，初始状态为 created。
func (j *Journal) BeginOperation(id string, intent order.Intent) {
	now := time.Now().UTC()
	_, err := j.db.Exec(
		`INSERT INTO operations (id, symbol, side, market_type, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, intent.Symbol, string(intent.Side), string(intent.MarketType()), string(order.StateCreated), now, now,
	)
	if err != nil {
		j.logger.Warn("登记交易操作失败", zap.String("operation_id", id), zap.Error(err))
	}
}

// RecordState 推进操作状态，detail 可携带阶段性数据（如定量结果）。
func (j *Journal) RecordState(id string, state order.State, detail interface{}) {
	payload := ""
	if detail != nil {
		if raw, err := json.Marshal(detail); err == nil {
			payload = string(raw)
		}
	}

	_, err := j.db.Exec(
		`UPDATE operations SET state = ?, detail = ?, updated_at = ? WHERE id = ?`,
		string(state), payload, time.Now().UTC(), id,
	)
	if err != nil {
		j.logger.Warn("更新操作状态失败",
			zap.String("operation_id", id),
			zap.String("state", string(state)),
			zap.Error(err),
		)
	}
}

// Fail 将操作标记为失败并记录原因。
func (j *Journal) Fail(id string, cause error) {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	_, err := j.db.Exec(
		`UPDATE operations SET state = ?, detail = ?, updated_at = ? WHERE id = ?`,
		string(order.StateFailed), detail, time.Now().UTC(), id,
	)
	if err != nil {
		j.logger.Warn("标记操作失败状态出错", zap.String("operation_id", id), zap.Error(err))
	}
}

// RecordReceipt 登记一笔子单回执。
func (j *Journal) RecordReceipt(id string, receipt exchange.Receipt) {
	_, err := j.db.Exec(
		`INSERT INTO order_receipts (operation_id, order_id, client_order_id, symbol, side, amount, price, filled, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, receipt.OrderID, receipt.ClientOrderID, receipt.Symbol, receipt.Side,
		receipt.Amount, receipt.Price, receipt.Filled, receipt.Status, time.Now().UTC(),
	)
	if err != nil {
		j.logger.Warn("登记子单回执失败",
			zap.String("operation_id", id),
			zap.String("order_id", receipt.OrderID),
			zap.Error(err),
		)
	}
}

// Operation 查询一次操作的当前快照。
func (j *Journal) Operation(id string) (OperationRecord, error) {
	row := j.db.QueryRow(
		`SELECT id, symbol, side, market_type, state, detail, created_at, updated_at
		 FROM operations WHERE id = ?`, id,
	)

	var rec OperationRecord
	var state string
	if err := row.Scan(&rec.ID, &rec.Symbol, &rec.Side, &rec.MarketType, &state, &rec.Detail, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return OperationRecord{}, fmt.Errorf("查询操作记录失败: %w", err)
	}
	rec.State = order.State(state)
	return rec, nil
}

// LastOperation 返回最近登记的一次操作。
func (j *Journal) LastOperation() (OperationRecord, error) {
	row := j.db.QueryRow(
		`SELECT id, symbol, side, market_type, state, detail, created_at, updated_at
		 FROM operations ORDER BY rowid DESC LIMIT 1`,
	)

	var rec OperationRecord
	var state string
	if err := row.Scan(&rec.ID, &rec.Symbol, &rec.Side, &rec.MarketType, &state, &rec.Detail, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return OperationRecord{}, fmt.Errorf("查询最近操作失败: %w", err)
	}
	rec.State = order.State(state)
	return rec, nil
}

// Receipts 返回一次操作的全部子单回执，按提交顺序排列。
func (j *Journal) Receipts(id string) ([]exchange.Receipt, error) {
	rows, err := j.db.Query(
		`SELECT order_id, client_order_id, symbol, side, amount, price, filled, status, created_at
		 FROM order_receipts WHERE operation_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("查询回执记录失败: %w", err)
	}
	defer rows.Close()

	var receipts []exchange.Receipt
	for rows.Next() {
		var r exchange.Receipt
		if err := rows.Scan(&r.OrderID, &r.ClientOrderID, &r.Symbol, &r.Side, &r.Amount, &r.Price, &r.Filled, &r.Status, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("读取回执记录失败: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}
