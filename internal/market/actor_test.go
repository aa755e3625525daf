package market

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewActor_RejectsInvalidInputs(t *testing.T) {
	cases := []struct {
		name  string
		id    string
		cash  string
		goods int64
		cw    string
		gw    string
		field string
	}{
		{"empty id", " ", "1", 0, "1", "1", "id"},
		{"negative cash", "a", "-0.01", 0, "1", "1", "cash"},
		{"negative goods", "a", "1", -1, "1", "1", "goods"},
		{"negative cash weight", "a", "1", 0, "-1", "1", "cash_weight"},
		{"negative goods weight", "a", "1", 0, "1", "-2", "goods_weight"},
		{"zero weights", "a", "1", 0, "0", "0", "weights"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewActor(tc.id, dec(tc.cash), tc.goods, dec(tc.cw), dec(tc.gw))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if vErr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, vErr.Field)
			}
		})
	}
}

func TestNewActor_AggregatesErrors(t *testing.T) {
	_, err := NewActor("", dec("-1"), -1, dec("1"), dec("1"))
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	for _, field := range []string{"id", "cash", "goods"} {
		if !strings.Contains(msg, field+":") {
			t.Errorf("expected %q in error, got %s", field, msg)
		}
	}
}

func TestActor_SnapshotIsDetached(t *testing.T) {
	buyer := mustActor(t, "b", "1", 0, "1", "2")
	seller := mustActor(t, "s", "0", 1, "2", "1")
	snap := buyer.Snapshot()

	if !TryTrade(buyer, seller, decimal.NewFromInt(1)) {
		t.Fatalf("expected trade to execute")
	}
	if !snap.Cash.Equal(dec("1")) || snap.Goods != 0 || !snap.Utility.Equal(dec("1")) {
		t.Errorf("snapshot changed after trade: %+v", snap)
	}
}

func TestProfile_Spawn(t *testing.T) {
	p := Profile{Cash: dec("1"), Goods: 0, CashWeight: dec("1"), GoodsWeight: dec("2")}
	actors, err := p.Spawn("buyer", 3)
	if err != nil {
		t.Fatalf("Spawn returned error: %v", err)
	}
	if len(actors) != 3 {
		t.Fatalf("expected 3 actors, got %d", len(actors))
	}
	if actors[2].ID() != "buyer-2" {
		t.Errorf("unexpected id %q", actors[2].ID())
	}

	if _, err := p.Spawn("buyer", 0); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for zero count, got %v", err)
	}
	bad := Profile{Cash: dec("-1"), CashWeight: dec("1"), GoodsWeight: dec("1")}
	if _, err := bad.Spawn("seller", 2); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for negative cash, got %v", err)
	}
}
