package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-exec/internal/exchange"
	"trade-exec/internal/order"
)

func TestSubmitSucceedsFirstAttempt(t *testing.T) {
	adapter := &fakeExecAdapter{}
	submitter := NewSubmitter(adapter, nil)

	receipt, err := submitter.Submit(context.Background(), marketRequest(order.SideBuy, 1), testIntent(), RetryPolicy{MaxAttempts: 5, Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if receipt.OrderID == "" {
		t.Errorf("expected receipt with order id")
	}
	if adapter.createCalls != 1 {
		t.Errorf("expected exactly 1 create call, got %d", adapter.createCalls)
	}
}

func TestSubmitRetriesThenSucceeds(t *testing.T) {
	adapter := &fakeExecAdapter{failFirst: 2}
	submitter := NewSubmitter(adapter, nil)

	_, err := submitter.Submit(context.Background(), marketRequest(order.SideBuy, 1), testIntent(), RetryPolicy{MaxAttempts: 5, Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if adapter.createCalls != 3 {
		t.Errorf("expected 3 create calls, got %d", adapter.createCalls)
	}
}

func TestSubmitExhaustsBudget(t *testing.T) {
	adapter := &fakeExecAdapter{failFirst: 100}
	submitter := NewSubmitter(adapter, nil)
	intent := testIntent()

	_, err := submitter.Submit(context.Background(), marketRequest(order.SideBuy, 1), intent, RetryPolicy{MaxAttempts: 5, Delay: time.Millisecond})
	if err == nil {
		t.Fatalf("expected error after budget exhaustion")
	}
	if adapter.createCalls != 5 {
		t.Errorf("expected exactly 5 attempts, got %d", adapter.createCalls)
	}

	var orderErr *order.OrderError
	if !errors.As(err, &orderErr) {
		t.Fatalf("expected OrderError, got %T: %v", err, err)
	}
	if orderErr.Intent.Symbol != intent.Symbol {
		t.Errorf("OrderError must carry the intent snapshot, got %+v", orderErr.Intent)
	}
	if orderErr.Unwrap() == nil {
		t.Errorf("OrderError must wrap the last failure")
	}
}

func TestSubmitContextCancelled(t *testing.T) {
	adapter := &fakeExecAdapter{failFirst: 100}
	submitter := NewSubmitter(adapter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := submitter.Submit(ctx, marketRequest(order.SideBuy, 1), testIntent(), RetryPolicy{MaxAttempts: 5, Delay: time.Millisecond})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var orderErr *order.OrderError
	if errors.As(err, &orderErr) {
		t.Errorf("cancellation must not be wrapped as OrderError")
	}
}

func TestSubmitZeroAttemptsTreatedAsOne(t *testing.T) {
	adapter := &fakeExecAdapter{}
	submitter := NewSubmitter(adapter, nil)

	if _, err := submitter.Submit(context.Background(), marketRequest(order.SideSell, 1), testIntent(), RetryPolicy{}); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if adapter.createCalls != 1 {
		t.Errorf("expected 1 attempt, got %d", adapter.createCalls)
	}
}

func testIntent() order.Intent {
	return order.Intent{Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT", Side: order.SideBuy}
}

func marketRequest(side order.Side, amount float64) exchange.OrderRequest {
	return exchange.OrderRequest{Symbol: "BTC/USDT", Type: "market", Side: side, Amount: amount}
}
