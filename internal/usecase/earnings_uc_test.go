package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain"
)

func TestEarnings_RecordSplitsAndNotifies(t *testing.T) {
	ctx := context.Background()
	ledger := newMemEarningsRepo()
	notifier := &fakeNotifier{}
	uc := NewEarningsUseCase(ledger, notifier, newTestLogger())

	rec, err := uc.Record(ctx, nil, "D1", "A1", "row-1", decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !rec.DeveloperShare.Equal(decimal.RequireFromString("3.5")) || !rec.PlatformFee.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("bad split: share=%s fee=%s", rec.DeveloperShare, rec.PlatformFee)
	}
	if rec.ID == "" {
		t.Error("ledger row must get an id")
	}
	if len(notifier.earnings) != 1 {
		t.Errorf("expected 1 notification, got %d", len(notifier.earnings))
	}
}

func TestEarnings_RecordRejectsEmptyKeys(t *testing.T) {
	ctx := context.Background()
	uc := NewEarningsUseCase(newMemEarningsRepo(), nil, newTestLogger())

	if _, err := uc.Record(ctx, nil, "", "A1", "row-1", decimal.NewFromInt(5)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestEarnings_DeveloperSummary(t *testing.T) {
	ctx := context.Background()
	ledger := newMemEarningsRepo()
	uc := NewEarningsUseCase(ledger, nil, newTestLogger())

	for _, amt := range []int64{5, 10} {
		if _, err := uc.Record(ctx, nil, "D1", "A1", "row", decimal.NewFromInt(amt)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := uc.Record(ctx, nil, "D2", "A2", "row", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("record: %v", err)
	}

	sum, err := uc.DeveloperSummary(ctx, "D1", 10)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Totals.Purchases != 2 {
		t.Errorf("expected 2 purchases, got %d", sum.Totals.Purchases)
	}
	if !sum.Totals.Gross.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected gross 15, got %s", sum.Totals.Gross)
	}
	if !sum.Totals.DeveloperShare.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("expected share 10.5, got %s", sum.Totals.DeveloperShare)
	}
	if len(sum.Recent) != 2 {
		t.Errorf("expected 2 recent rows, got %d", len(sum.Recent))
	}
}
