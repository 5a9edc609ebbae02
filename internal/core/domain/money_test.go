package domain

import "testing"

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Money
		ok    bool
	}{
		{name: "plain decimal", input: "4.50", want: 450, ok: true},
		{name: "dollar sign", input: "$45.67", want: 4567, ok: true},
		{name: "currency code and spaces", input: "USD 12.30", want: 1230, ok: true},
		{name: "integer", input: "7", want: 700, ok: true},
		{name: "thousands separator", input: "1,234.56", want: 123456, ok: true},
		{name: "sub-cent rounds half away from zero", input: "0.005", want: 1, ok: true},
		{name: "weighed price", input: "1.995", want: 200, ok: true},
		{name: "empty", input: "", ok: false},
		{name: "letters only", input: "abc", ok: false},
		{name: "multiple dots", input: "1.2.3", ok: false},
		{name: "lone dot", input: ".", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCurrency(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseCurrency(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("ParseCurrency(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{input: "2", want: 2, ok: true},
		{input: "0.33", want: 0.33, ok: true},
		{input: "2 lb", want: 2, ok: true},
		{input: "abc", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := ParseQuantity(tt.input)
		if ok != tt.ok {
			t.Fatalf("ParseQuantity(%q) ok = %v, want %v", tt.input, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Fatalf("ParseQuantity(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestMulQuantityRoundsPerItem(t *testing.T) {
	// 0.33 lb at $4.00/lb: 400 * 0.33 = 132 exactly.
	if got := Money(400).MulQuantity(0.33); got != 132 {
		t.Fatalf("400 * 0.33 = %d, want 132", got)
	}
	// Half-cent product rounds away from zero: 25 * 0.5 = 12.5 -> 13.
	if got := Money(25).MulQuantity(0.5); got != 13 {
		t.Fatalf("25 * 0.5 = %d, want 13", got)
	}
	if got := Money(-25).MulQuantity(0.5); got != -13 {
		t.Fatalf("-25 * 0.5 = %d, want -13", got)
	}
	if got := Money(450).MulQuantity(1); got != 450 {
		t.Fatalf("450 * 1 = %d, want 450", got)
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		amount Money
		want   string
	}{
		{amount: 450, want: "4.50"},
		{amount: 5, want: "0.05"},
		{amount: -210, want: "-2.10"},
		{amount: 0, want: "0.00"},
	}
	for _, tt := range tests {
		if got := tt.amount.String(); got != tt.want {
			t.Fatalf("Money(%d).String() = %q, want %q", tt.amount, got, tt.want)
		}
	}
}
