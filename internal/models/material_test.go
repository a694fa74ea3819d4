package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBatch_BeforeFIFO(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b Batch
		want bool
	}{
		{"Older date first", Batch{ReceivedDate: jan, ReceiptSeq: 9}, Batch{ReceivedDate: feb, ReceiptSeq: 1}, true},
		{"Newer date later", Batch{ReceivedDate: feb, ReceiptSeq: 1}, Batch{ReceivedDate: jan, ReceiptSeq: 9}, false},
		{"Same date uses receipt sequence", Batch{ReceivedDate: jan, ReceiptSeq: 1}, Batch{ReceivedDate: jan, ReceiptSeq: 2}, true},
		{"Same date later sequence", Batch{ReceivedDate: jan, ReceiptSeq: 3}, Batch{ReceivedDate: jan, ReceiptSeq: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.BeforeFIFO(&tt.b); got != tt.want {
				t.Errorf("BeforeFIFO() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBatch_BaseQuantity(t *testing.T) {
	b := &Batch{QuantityOnHand: decimal.RequireFromString("2.25"), Unit: UnitKilogram}
	if got := b.BaseQuantity(); !got.Equal(decimal.NewFromInt(2250)) {
		t.Errorf("BaseQuantity() = %s, want 2250", got)
	}
	if b.IsDepleted() {
		t.Error("IsDepleted() = true for a stocked lot")
	}

	b.QuantityOnHand = decimal.Zero
	if !b.IsDepleted() {
		t.Error("IsDepleted() = false for an empty lot")
	}
}

func TestMaterialStock_IsCritical(t *testing.T) {
	tests := []struct {
		name      string
		onHand    string
		threshold string
		want      bool
	}{
		{"Above threshold", "12", "10", false},
		{"At threshold", "10", "10", true},
		{"Below threshold", "3.5", "10", true},
		{"Zero threshold disables", "0", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := MaterialStock{
				Material: RawMaterial{CriticalThreshold: decimal.RequireFromString(tt.threshold)},
				OnHand:   decimal.RequireFromString(tt.onHand),
			}
			if got := s.IsCritical(); got != tt.want {
				t.Errorf("IsCritical() = %v, want %v", got, tt.want)
			}
		})
	}
}
