package export

import (
	"context"
	"testing"
	"time"

	"sprout/internal/core"
)

func TestMemoryAppendAssignsSequentialRefs(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	for i, want := range []string{"mem:1", "mem:2", "mem:3"} {
		ref, err := store.Append(ctx, Row{
			Timestamp:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			Amount:      core.Money{Cents: int64(100 * (i + 1))},
			Description: "coffee",
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if ref != want {
			t.Errorf("ref = %q, want %q", ref, want)
		}
	}

	rows := store.Rows()
	if len(rows) != 3 {
		t.Fatalf("Rows() returned %d rows, want 3", len(rows))
	}
	if rows[1].Amount.Cents != 200 {
		t.Errorf("second row amount = %d, want 200", rows[1].Amount.Cents)
	}
}

func TestRowValuesLayout(t *testing.T) {
	row := Row{
		Timestamp:   time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		Amount:      core.Money{Cents: 1250},
		Description: "groceries",
		Category:    "Food & Dining",
	}

	values := row.Values()
	if len(values) != 4 {
		t.Fatalf("Values() returned %d columns, want 4", len(values))
	}
	if values[0] != "2025-03-01 09:30:00" {
		t.Errorf("timestamp column = %v", values[0])
	}
	if values[1] != 12.5 {
		t.Errorf("amount column = %v, want 12.5", values[1])
	}
	if values[3] != "Food & Dining" {
		t.Errorf("category column = %v", values[3])
	}
}
