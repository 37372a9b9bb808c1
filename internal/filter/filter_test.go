package filter_test

import (
	"strings"
	"testing"
	"time"

	"gapipe/internal/filter"
)

func TestEmptyFilterMatchesEverything(t *testing.T) {
	filters := []filter.Filter{
		filter.NewInt("visit", "%06d"),
		filter.NewHex("objId", "%016x"),
		filter.NewString("patch"),
		filter.NewDate("date"),
	}
	values := []any{int64(42), uint64(0xdeadbeef), "1,1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	for i, f := range filters {
		if !f.Empty() {
			t.Fatalf("filter %s should be empty", f.Name())
		}
		if !f.Match(values[i]) {
			t.Fatalf("empty filter %s must match %v", f.Name(), values[i])
		}
		if f.GlobPattern() == "" {
			t.Fatalf("filter %s glob pattern must not be empty", f.Name())
		}
	}
}

func TestIntFilterScalarAndRange(t *testing.T) {
	f := filter.NewInt("visit", "%06d")
	if err := f.Parse([]string{"120", "123-127"}); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	cases := map[int64]bool{
		119: false,
		120: true,
		122: false,
		123: true,
		125: true,
		127: true,
		128: false,
	}
	for v, want := range cases {
		if got := f.Match(v); got != want {
			t.Fatalf("Match(%d) = %v, want %v", v, got, want)
		}
	}
	if f.GlobPattern() != "*" {
		t.Fatalf("multi-valued filter must render wildcard, got %q", f.GlobPattern())
	}
	if got := f.String(); got != "000120 000123-000127" {
		t.Fatalf("unexpected String(): %q", got)
	}
}

func TestSingleScalarRendersLiteralGlob(t *testing.T) {
	f := filter.NewInt("catId", "%05d")
	if err := f.Parse([]string{"42"}); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !f.Match(int64(42)) {
		t.Fatal("scalar filter must match its own value")
	}
	if got := f.GlobPattern(); got != "00042" {
		t.Fatalf("expected zero-padded literal, got %q", got)
	}
}

func TestIntRangeRoundTrip(t *testing.T) {
	f := filter.NewInt("visit", "%06d")
	if err := f.Parse([]string{"000123-000127"}); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := f.String(); got != "000123-000127" {
		t.Fatalf("lossless format must round-trip, got %q", got)
	}
}

func TestIntFilterRejectsMalformedTokens(t *testing.T) {
	f := filter.NewInt("visit", "%06d")
	if err := f.Parse([]string{"abc"}); err == nil {
		t.Fatal("expected parse error for non-numeric token")
	}
	if err := f.Parse([]string{"1-2-3"}); err == nil {
		t.Fatal("expected parse error for malformed range")
	}
}

func TestHexFilter(t *testing.T) {
	f := filter.NewHex("objId", "%016x")
	if err := f.Parse([]string{"0xdeadbeef", "10-1f"}); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !f.Match(uint64(0xdeadbeef)) {
		t.Fatal("hex scalar should match")
	}
	if !f.Match(uint64(0x15)) {
		t.Fatal("value inside hex range should match")
	}
	if f.Match(uint64(0x20)) {
		t.Fatal("value outside hex range should not match")
	}
	if err := f.Parse([]string{"zz"}); err == nil {
		t.Fatal("expected parse error for non-hex token")
	}

	single := filter.NewHex("objId", "%016x")
	if err := single.Set(uint64(0xbad)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if got := single.GlobPattern(); got != "0000000000000bad" {
		t.Fatalf("unexpected hex literal: %q", got)
	}
}

func TestStringFilter(t *testing.T) {
	f := filter.NewString("patch")
	if err := f.Parse([]string{"1,1"}); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	ok, err := f.MatchString("1,1")
	if err != nil || !ok {
		t.Fatalf("MatchString(1,1) = %v, %v", ok, err)
	}
	if f.Match("2,2") {
		t.Fatal("non-member string should not match")
	}
}

func TestDateFilterSingleAndRange(t *testing.T) {
	f := filter.NewDate("date")
	if err := f.Parse([]string{"2025-06-01"}); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := f.GlobPattern(); got != "2025-06-01" {
		t.Fatalf("single date must render literally, got %q", got)
	}

	if err := f.Parse([]string{"2025-06-01-2025-06-30"}); err != nil {
		t.Fatalf("Parse range returned error: %v", err)
	}
	if got := f.GlobPattern(); got != "????-??-??" {
		t.Fatalf("date range must render fixed-width wildcard, got %q", got)
	}

	inside := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !f.Match(inside) {
		t.Fatalf("date %v should fall inside range", inside)
	}
	if f.Match(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("date outside range should not match")
	}
	if ok, err := f.MatchString("2025-06-30"); err != nil || !ok {
		t.Fatalf("range bounds are inclusive: %v, %v", ok, err)
	}
}

func TestDateFilterRejectsBadDashCount(t *testing.T) {
	f := filter.NewDate("date")
	if err := f.Parse([]string{"2025-06"}); err == nil {
		t.Fatal("expected parse error for truncated date")
	}
	if err := f.Parse([]string{"2025-06-01-2025"}); err == nil {
		t.Fatal("expected parse error for partial range")
	}
}

func TestMatchRejectsWrongType(t *testing.T) {
	f := filter.NewInt("visit", "%06d")
	if err := f.Parse([]string{"1"}); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if f.Match("1") {
		t.Fatal("typed match must reject raw strings")
	}
	ok, err := f.MatchString("1")
	if err != nil || !ok {
		t.Fatalf("MatchString should parse first: %v, %v", ok, err)
	}
}

func TestParseValueSharesValueDomain(t *testing.T) {
	f := filter.NewHex("objId", "%016x")
	v, err := f.ParseValue("0000000000000bad")
	if err != nil {
		t.Fatalf("ParseValue returned error: %v", err)
	}
	if err := f.Set(v); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if !strings.EqualFold(f.FormatValue(v), "0000000000000bad") {
		t.Fatalf("FormatValue should be lossless, got %q", f.FormatValue(v))
	}
}
