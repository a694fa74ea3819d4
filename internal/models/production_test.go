package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestProductionOrder_Status(t *testing.T) {
	o := &ProductionOrder{}
	if o.Status() != OrderStatusPlanned {
		t.Errorf("Status() = %v, want PLANNED", o.Status())
	}
	o.ProducedQuantity = 4
	if o.Status() != OrderStatusProduced {
		t.Errorf("Status() = %v, want PRODUCED", o.Status())
	}
}

func TestProductionLog_SourceName(t *testing.T) {
	lot := "lot-1"
	l := &ProductionLog{BatchID: &lot, MaterialName: "Flour"}
	if l.IsSubProduct() || l.SourceName() != "Flour" {
		t.Errorf("lot entry: IsSubProduct=%v SourceName=%q", l.IsSubProduct(), l.SourceName())
	}

	sub := "prod-1"
	l = &ProductionLog{SubProductID: &sub, SubProductName: "Dough"}
	if !l.IsSubProduct() || l.SourceName() != "Dough" {
		t.Errorf("sub-product entry: IsSubProduct=%v SourceName=%q", l.IsSubProduct(), l.SourceName())
	}
}

func TestShortageReport(t *testing.T) {
	var empty ShortageReport
	if !empty.Empty() {
		t.Error("zero report should be empty")
	}

	r := ShortageReport{Shortages: []Shortage{
		{Name: "Flour", Shortfall: decimal.RequireFromString("3.000"), Unit: UnitKilogram},
		{Name: "Dough", Shortfall: decimal.NewFromInt(2), Unit: UnitPieces},
	}}

	want := []string{"Flour: short by 3 kg", "Dough: short by 2 pcs"}
	got := r.Messages()
	if len(got) != len(want) {
		t.Fatalf("Messages() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Messages()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if r.String() != "Flour: short by 3 kg; Dough: short by 2 pcs" {
		t.Errorf("String() = %q", r.String())
	}
}

func TestPagination(t *testing.T) {
	tests := []struct {
		name       string
		page       Pagination
		total      int
		wantOffset int
		wantLimit  int
		wantPages  int
	}{
		{"First page", Pagination{Page: 1, PageSize: 10}, 35, 0, 10, 4},
		{"Third page", Pagination{Page: 3, PageSize: 10}, 35, 20, 10, 4},
		{"Zero page clamps", Pagination{Page: 0, PageSize: 10}, 0, 0, 10, 1},
		{"Oversized page clamps", Pagination{Page: 2, PageSize: 500}, 150, 100, 100, 2},
		{"Missing size defaults", Pagination{Page: 1}, 30, 0, 25, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.Offset(); got != tt.wantOffset {
				t.Errorf("Offset() = %d, want %d", got, tt.wantOffset)
			}
			if got := tt.page.Limit(); got != tt.wantLimit {
				t.Errorf("Limit() = %d, want %d", got, tt.wantLimit)
			}
			if got := tt.page.TotalPages(tt.total); got != tt.wantPages {
				t.Errorf("TotalPages(%d) = %d, want %d", tt.total, got, tt.wantPages)
			}
		})
	}
}
