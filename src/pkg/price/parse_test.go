package price

import (
	"fmt"
	"strings"
	"testing"
)

func TestParseMantissaSuffixGrid(t *testing.T) {
	mantissas := []struct {
		text      string
		thousandX int64 // mantissa * 1000, exact
	}{
		{"1", 1_000},
		{"1.5", 1_500},
		{"100", 100_000},
		{"0", 0},
	}

	for _, m := range mantissas {
		for _, suffix := range []string{"", "k", "m", "b", "K", "M", "B"} {
			text := m.text + suffix
			multiplier, _ := Multiplier(suffix)
			want := m.thousandX * multiplier / 1_000

			got, e := Parse(text)
			if e != nil {
				t.Fatalf("Parse(%q) failed: %v", text, e)
			}
			if got != want {
				t.Errorf("Parse(%q) = %d, want %d", text, got, want)
			}
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"100", 100},
		{"1.5k", 1_500},
		{"2.33m", 2_330_000},
		{"1.2345k", 1_234},
		{"0.0015k", 1},
		{"1,000,000", 1_000_000},
		{"1,5k", 15_000},
		{"  750K ", 750_000},
		{"10k+", 10_000},
		{"5m-", 5_000_000},
		{".5b", 500_000_000},
		{"3.", 3},
		{"5/10m", 5},
		{"600m-1b", 600_000_000},
		{"1b/2b", 1_000_000_000},
		{"10k+/20k", 10_000},
		{"10k+ - 20k", 10_000},
		{"10k + / 20k", 10_000},
		{"9223372036", 9_223_372_036},
	}

	for _, tt := range tests {
		got, e := Parse(tt.in)
		if e != nil {
			t.Errorf("Parse(%q) failed: %v", tt.in, e)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseFailures(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"abc",
		"1.2.3",
		"5x",
		"k",
		"m5",
		"5kk",
		"5km",
		"trade only",
		"-5",
		"/10",
		"1 000",
		"99999999999b",
	} {
		_, e := Parse(in)
		if e == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestEvaluate(t *testing.T) {
	if got := Evaluate("2k"); !got.Valid || got.Amount != 2_000 {
		t.Fatalf("Evaluate(2k) = %+v", got)
	}
	if got := Evaluate("n/a"); got.Valid || got.Amount != 0 {
		t.Fatalf("Evaluate(n/a) = %+v", got)
	}
}

func TestMultiplier(t *testing.T) {
	for suffix, want := range map[string]int64{"": 1, "k": 1e3, "M": 1e6, "b": 1e9} {
		got, ok := Multiplier(suffix)
		if !ok || got != want {
			t.Errorf("Multiplier(%q) = %d, %v", suffix, got, ok)
		}
	}
	if _, ok := Multiplier("t"); ok {
		t.Error("Multiplier(t) should not be ok")
	}
}

func ExampleParse() {
	for _, text := range []string{"1.5k", "2.33M", "600m-1b"} {
		amount, _ := Parse(text)
		fmt.Println(strings.ToLower(text), amount)
	}
	// Output:
	// 1.5k 1500
	// 2.33m 2330000
	// 600m-1b 600000000
}
