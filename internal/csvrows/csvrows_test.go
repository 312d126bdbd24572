package csvrows

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/inventory-refresher/internal/record"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []record.Fields
	}{
		{
			name:    "coerces numbers booleans and empty cells",
			content: "a,b,c,d\n42,true,hello,\n",
			want: []record.Fields{
				{"a": record.Number(42), "b": record.Bool(true), "c": record.String("hello"), "d": record.String("")},
			},
		},
		{
			name:    "skips blank lines",
			content: "PO,Qty\n\n1001,3\n   \n1002,4\n\n",
			want: []record.Fields{
				{"PO": record.Number(1001), "Qty": record.Number(3)},
				{"PO": record.Number(1002), "Qty": record.Number(4)},
			},
		},
		{
			name:    "tolerates ragged rows",
			content: "a,b,c\n1\n1,2,3,4\n",
			want: []record.Fields{
				{"a": record.Number(1)},
				{"a": record.Number(1), "b": record.Number(2), "c": record.Number(3)},
			},
		},
		{
			name:    "headers are trimmed but never coerced",
			content: " 1 , true \nx,y\n",
			want: []record.Fields{
				{"1": record.String("x"), "true": record.String("y")},
			},
		},
		{
			name:    "quoted cells keep commas",
			content: "Vendor,Note\n\"Acme, Inc.\",\" FALSE \"\n",
			want: []record.Fields{
				{"Vendor": record.String("Acme, Inc."), "Note": record.Bool(false)},
			},
		},
		{
			name:    "header only",
			content: "a,b\n",
			want:    nil,
		},
		{
			name:    "empty input",
			content: "",
			want:    nil,
		},
		{
			name:    "strips byte order mark",
			content: "\ufeffPO\n7\n",
			want:    []record.Fields{{"PO": record.Number(7)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.content)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_MalformedQuote(t *testing.T) {
	if _, err := Parse("a,b\n\"unterminated,1\n"); err == nil {
		t.Error("expected error for unterminated quote")
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{42, "42"},
		{0.5, "0.5"},
		{1e-6, "0.000001"},
		{1e-7, "1e-7"},
		{1.25e-10, "1.25e-10"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{-3e100, "-3e+100"},
	}

	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want record.Value
	}{
		{"42", record.Number(42)},
		{" 42 ", record.Number(42)},
		{"-3.25", record.Number(-3.25)},
		{"0", record.Number(0)},
		{"4.50", record.String("4.50")},
		{"007", record.String("007")},
		{"1e3", record.String("1e3")},
		{"-0", record.String("-0")},
		{"0.000001", record.Number(1e-6)},
		{"0.0000001", record.String("0.0000001")},
		{"1e-7", record.Number(1e-7)},
		{"1.5e-7", record.Number(1.5e-7)},
		{"1e-07", record.String("1e-07")},
		{"123456789012345680000", record.Number(1.2345678901234568e20)},
		{"1000000000000000000000", record.String("1000000000000000000000")},
		{"1e+21", record.Number(1e21)},
		{"1e21", record.String("1e21")},
		{"-2.5e+22", record.Number(-2.5e22)},
		{"NaN", record.String("NaN")},
		{"Inf", record.String("Inf")},
		{"TRUE", record.Bool(true)},
		{"False", record.Bool(false)},
		{"yes", record.String("yes")},
		{"", record.String("")},
		{"   ", record.String("")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Coerce(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("Coerce(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}
