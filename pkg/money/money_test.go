package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRound_HalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1"},
		{"0.125", "0.13"},
		{"333.335", "333.34"},
		{"10", "10"},
	}
	for _, tt := range tests {
		got := Round(decimal.RequireFromString(tt.in))
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Round(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestEqual_WithinEpsilon(t *testing.T) {
	a := decimal.RequireFromString("100.00")
	if !Equal(a, decimal.RequireFromString("100.004")) {
		t.Error("expected amounts within half a cent to be equal")
	}
	if Equal(a, decimal.RequireFromString("100.01")) {
		t.Error("expected amounts one cent apart to differ")
	}
}

func TestSplit_LastAbsorbsRemainder(t *testing.T) {
	shares, err := Split(decimal.NewFromInt(1000), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}
	want := []string{"333.33", "333.33", "333.34"}
	for i, w := range want {
		if !shares[i].Equal(decimal.RequireFromString(w)) {
			t.Errorf("share %d = %s, want %s", i, shares[i], w)
		}
	}
	if !Sum(shares...).Equal(decimal.NewFromInt(1000)) {
		t.Errorf("shares sum to %s, want 1000", Sum(shares...))
	}
}

func TestSplit_TinyTotal(t *testing.T) {
	shares, err := Split(decimal.RequireFromString("0.05"), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range shares {
		if s.IsNegative() {
			t.Errorf("share %d is negative: %s", i, s)
		}
	}
	if !Sum(shares...).Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("shares sum to %s, want 0.05", Sum(shares...))
	}
}

func TestSplit_InvalidParts(t *testing.T) {
	if _, err := Split(decimal.NewFromInt(10), 0); err == nil {
		t.Error("expected error for zero parts")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "1000", want: "1000"},
		{name: "thousands separator", raw: "1,250.50", want: "1250.5"},
		{name: "spaces", raw: " 1 250.00 ", want: "1250"},
		{name: "rounds to cents", raw: "10.005", want: "10.01"},
		{name: "negative kept", raw: "-5", want: "-5"},
		{name: "several thousands groups", raw: "-1,000,000.25", want: "-1000000.25"},
		{name: "decimal comma rejected", raw: "12,50", wantErr: true},
		{name: "short trailing group", raw: "1,25", wantErr: true},
		{name: "long trailing group", raw: "1,2500", wantErr: true},
		{name: "leading comma", raw: ",500", wantErr: true},
		{name: "comma after point", raw: "1.000,50", wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "garbage", raw: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.raw, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Parse(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMinAndNonNegative(t *testing.T) {
	a, b := decimal.NewFromInt(3), decimal.NewFromInt(7)
	if !Min(a, b).Equal(a) || !Min(b, a).Equal(a) {
		t.Error("Min returned the larger value")
	}
	if !NonNegative(decimal.NewFromInt(-2)).IsZero() {
		t.Error("NonNegative did not clamp negative value")
	}
	if !Positive(decimal.RequireFromString("0.01")) || Positive(decimal.RequireFromString("0.004")) {
		t.Error("Positive threshold is wrong")
	}
}
