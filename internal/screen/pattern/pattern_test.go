package pattern

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
		pos     int
	}{
		{"138*", false, 0},
		{"????", false, 0},
		{"*", false, 0},
		{"0123456789*?", false, 0},
		{"", true, -1},
		{"138-1234", true, 3},
		{"+86*", true, 0},
		{"12a4", true, 2},
		{"12 4", true, 2},
		{"12#", true, 2},
	}
	for _, tc := range cases {
		err := Validate(tc.in)
		if !tc.wantErr {
			if err != nil {
				t.Errorf("Validate(%q) unexpected error: %v", tc.in, err)
			}
			continue
		}
		var ipe *InvalidPatternError
		if !errors.As(err, &ipe) {
			t.Fatalf("Validate(%q) = %v, want *InvalidPatternError", tc.in, err)
		}
		if ipe.Pos != tc.pos {
			t.Errorf("Validate(%q) pos = %d, want %d", tc.in, ipe.Pos, tc.pos)
		}
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("Validate(%q) error should match ErrInvalidPattern", tc.in)
		}
	}
}

func TestInvalidPatternError_Message(t *testing.T) {
	err := Validate("12é")
	if err == nil || !strings.Contains(err.Error(), "'é'") {
		t.Fatalf("expected message to name the rune, got %v", err)
	}
	if !strings.Contains(Validate("").Error(), "empty") {
		t.Fatalf("expected empty pattern message")
	}
}

func TestCompile_Rejects(t *testing.T) {
	if _, err := Compile("1-2"); err == nil {
		t.Fatal("expected error")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("MustCompile should panic on invalid pattern")
		}
	}()
	MustCompile("x")
}

func TestMatches_FixedLength(t *testing.T) {
	p := MustCompile("3456????")
	for _, n := range []string{"34561234", "34560000", "34569999"} {
		if !p.Matches(n) {
			t.Errorf("%s should match %s", p, n)
		}
	}
	for _, n := range []string{"3456123", "345612345", "3456", "12341234", "34571234", "00001234"} {
		if p.Matches(n) {
			t.Errorf("%s should not match %s", p, n)
		}
	}
}

func TestMatches_InteriorStar(t *testing.T) {
	p := MustCompile("138*5678")
	for _, n := range []string{"1385678", "13805678", "138123455678", "1385678995678"} {
		if !p.Matches(n) {
			t.Errorf("%s should match %s", p, n)
		}
	}
	for _, n := range []string{"1385679", "138567", "1395678", "13856781"} {
		if p.Matches(n) {
			t.Errorf("%s should not match %s", p, n)
		}
	}
}

func TestMatches_QuestionArity(t *testing.T) {
	p := MustCompile("138????")
	if !p.Matches("1381234") {
		t.Errorf("expected 4 trailing digits to match")
	}
	if p.Matches("138123") {
		t.Errorf("3 trailing digits must not match")
	}
	if p.Matches("13812345") {
		t.Errorf("5 trailing digits must not match")
	}
}

func TestMatches_Table(t *testing.T) {
	cases := []struct {
		pattern string
		number  string
		want    bool
	}{
		{"86*", "8613812345678", true},
		{"86*", "86", true},
		{"86*", "8", false},
		{"1*", "18005551234", true},
		{"*1234", "00001234", true},
		{"*1234", "1234", true},
		{"*1234", "00005678", false},
		{"????1234", "99991234", true},
		{"34??5678", "34005678", true},
		{"34??5678", "34001234", false},
		{"12345678", "12345678", true},
		{"12345678", "12345679", false},
		{"*", "5", true},
		{"**", "123", true},
		{"*?*", "", false},
		{"*?*", "7", true},
		{"1*2*3", "123", true},
		{"1*2*3", "1002003", true},
		{"1*2*3", "1002004", false},
		{"*12*12*", "1212", true},
		{"*12*12*", "121", false},
		{"1800??????", "1800123456", true},
		{"1800??????", "1801123456", false},
		{"1800??????", "180012345", false},
		{"?", "12", false},
		{"138*", "138-1234", false},
	}
	for _, tc := range cases {
		if got := MustCompile(tc.pattern).Matches(tc.number); got != tc.want {
			t.Errorf("MustCompile(%q).Matches(%q) = %v, want %v", tc.pattern, tc.number, got, tc.want)
		}
	}
}

func TestMatches_ZeroValue(t *testing.T) {
	var p Pattern
	if p.Matches("123") {
		t.Fatal("zero Pattern must not match")
	}
}

func TestMatches_EmptyNumber(t *testing.T) {
	for _, s := range []string{"*", "?", "1"} {
		if MustCompile(s).Matches("") {
			t.Errorf("%q must not match the empty number", s)
		}
	}
}

func TestIsLiteral(t *testing.T) {
	if !MustCompile("5551234").IsLiteral() {
		t.Errorf("digit-only pattern should be literal")
	}
	if MustCompile("555?234").IsLiteral() || MustCompile("555*").IsLiteral() {
		t.Errorf("wildcard pattern should not be literal")
	}
}

// TestMatches_AgreesWithRegexp cross-checks the matcher against the
// equivalent anchored regular expression.
func TestMatches_AgreesWithRegexp(t *testing.T) {
	patterns := []string{"1*", "*1", "1*1", "?*?", "*?1*", "12*3?4*", "**9**", "0?0?0", "*0*0*0*"}
	numbers := []string{"1", "11", "101", "0000", "10203040", "12334", "123x4", "909", "000", "0100100", "99999999"}
	for _, ps := range patterns {
		var b strings.Builder
		b.WriteString("^")
		for _, c := range ps {
			switch c {
			case '*':
				b.WriteString("[0-9]*")
			case '?':
				b.WriteString("[0-9]")
			default:
				b.WriteRune(c)
			}
		}
		b.WriteString("$")
		re := regexp.MustCompile(b.String())
		p := MustCompile(ps)
		for _, n := range numbers {
			if got, want := p.Matches(n), re.MatchString(n); got != want {
				t.Errorf("pattern %q number %q: got %v, regexp says %v", ps, n, got, want)
			}
		}
	}
}

func BenchmarkMatches_InteriorStar(b *testing.B) {
	p := MustCompile("138*5678")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = p.Matches("138123455678")
	}
}

func BenchmarkMatches_Literal(b *testing.B) {
	p := MustCompile("8613812345678")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = p.Matches("8613812345678")
	}
}
