package store

import (
	"testing"

	"trade-exec/internal/config"
	"trade-exec/internal/exchange"
	"trade-exec/internal/order"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	s, err := NewSQLite(config.DatabaseConfig{InMemory: true, MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	journal, err := NewJournal(s, nil)
	if err != nil {
		t.Fatalf("init journal: %v", err)
	}
	return journal
}

func testJournalIntent() order.Intent {
	return order.Intent{Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT", Side: order.SideBuy}
}

func TestJournalOperationLifecycle(t *testing.T) {
	journal := newTestJournal(t)

	journal.BeginOperation("op-1", testJournalIntent())

	rec, err := journal.Operation("op-1")
	if err != nil {
		t.Fatalf("Operation returned error: %v", err)
	}
	if rec.State != order.StateCreated {
		t.Errorf("initial state = %s, want created", rec.State)
	}
	if rec.Symbol != "BTC/USDT" || rec.Side != "buy" || rec.MarketType != "spot" {
		t.Errorf("unexpected operation snapshot: %+v", rec)
	}

	journal.RecordState("op-1", order.StateSized, order.Resolution{Quantity: 1.5})
	journal.RecordState("op-1", order.StateCompleted, nil)

	rec, err = journal.Operation("op-1")
	if err != nil {
		t.Fatalf("Operation returned error: %v", err)
	}
	if rec.State != order.StateCompleted {
		t.Errorf("final state = %s, want completed", rec.State)
	}
}

func TestJournalFail(t *testing.T) {
	journal := newTestJournal(t)

	journal.BeginOperation("op-2", testJournalIntent())
	journal.Fail("op-2", order.ErrFreeAmountNone)

	rec, err := journal.Operation("op-2")
	if err != nil {
		t.Fatalf("Operation returned error: %v", err)
	}
	if rec.State != order.StateFailed {
		t.Errorf("state = %s, want failed", rec.State)
	}
	if rec.Detail == "" {
		t.Errorf("failure detail must record the cause")
	}
}

func TestJournalReceiptsOrdered(t *testing.T) {
	journal := newTestJournal(t)

	journal.BeginOperation("op-3", testJournalIntent())
	journal.RecordReceipt("op-3", exchange.Receipt{OrderID: "a", Symbol: "BTC/USDT", Side: "buy", Amount: 1, Status: "closed"})
	journal.RecordReceipt("op-3", exchange.Receipt{OrderID: "b", Symbol: "BTC/USDT", Side: "buy", Amount: 2, Status: "closed"})

	receipts, err := journal.Receipts("op-3")
	if err != nil {
		t.Fatalf("Receipts returned error: %v", err)
	}
	if len(receipts) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(receipts))
	}
	if receipts[0].OrderID != "a" || receipts[1].OrderID != "b" {
		t.Errorf("receipts out of submission order: %+v", receipts)
	}
}

func TestJournalLastOperation(t *testing.T) {
	journal := newTestJournal(t)

	journal.BeginOperation("op-4", testJournalIntent())
	journal.BeginOperation("op-5", testJournalIntent())

	rec, err := journal.LastOperation()
	if err != nil {
		t.Fatalf("LastOperation returned error: %v", err)
	}
	if rec.ID != "op-5" {
		t.Errorf("last operation = %s, want op-5", rec.ID)
	}
}
