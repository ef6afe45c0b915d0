package model

import "testing"

func TestEntryTotalAmount(t *testing.T) {
	amt := int64(250)
	pct := -10

	t.Run("flat amount times quantity", func(t *testing.T) {
		e := &Entry{Amount: &amt, Quantity: 3}
		if got := e.TotalAmount(0); got != 750 {
			t.Fatalf("total = %d, want 750", got)
		}
	})

	t.Run("percent of the reference, rounded", func(t *testing.T) {
		e := &Entry{Percent: &pct, Quantity: 1}
		if got := e.TotalAmount(1005); got != -101 {
			t.Fatalf("total = %d, want -101", got)
		}
	})

	t.Run("percent and amount stack", func(t *testing.T) {
		e := &Entry{Amount: &amt, Percent: &pct, Quantity: 1}
		if got := e.TotalAmount(1000); got != 150 {
			t.Fatalf("total = %d, want -100 + 250 = 150", got)
		}
	})

	t.Run("reference is ignored without a percent", func(t *testing.T) {
		e := &Entry{Amount: &amt, Quantity: 1}
		if got := e.TotalAmount(99999); got != 250 {
			t.Fatalf("total = %d, want 250", got)
		}
	})
}

func TestEntryInvoiceable(t *testing.T) {
	limit := 2

	cases := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{"unlimited valid entry", Entry{State: EntryStateValid}, true},
		{"under the limit", Entry{State: EntryStateValid, InvoicesLimit: &limit, InvoicedCount: 1}, true},
		{"at the limit", Entry{State: EntryStateValid, InvoicesLimit: &limit, InvoicedCount: 2}, false},
		{"voided", Entry{State: EntryStateVoided}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.entry.Invoiceable(); got != tc.want {
				t.Fatalf("Invoiceable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEntryValidate(t *testing.T) {
	amt := int64(100)

	t.Run("valid", func(t *testing.T) {
		e := &Entry{Context: EntryContextSubscription, Description: "Addon", Amount: &amt, Quantity: 1}
		if err := e.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	t.Run("needs an amount or a percent", func(t *testing.T) {
		e := &Entry{Context: EntryContextSubscription, Description: "Addon", Quantity: 1}
		if err := e.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("needs a positive quantity", func(t *testing.T) {
		e := &Entry{Context: EntryContextSubscription, Description: "Addon", Amount: &amt}
		if err := e.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestEntryAdjustmentString(t *testing.T) {
	amt := int64(-1050)
	pct := -15

	e := &Entry{Amount: &amt, Quantity: 1}
	if got := e.AdjustmentString(); got != "-10.50" {
		t.Fatalf("got %q, want -10.50", got)
	}
	e = &Entry{Percent: &pct}
	if got := e.AdjustmentString(); got != "15% off" {
		t.Fatalf("got %q, want 15%% off", got)
	}
	e = &Entry{}
	if got := e.AdjustmentString(); got != "-" {
		t.Fatalf("got %q, want -", got)
	}
}
