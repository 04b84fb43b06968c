// Package pattern compiles and matches caller-id wildcard patterns.
//
// A pattern is a non-empty string over the digits 0-9 and two wildcards:
//
//	?  exactly one digit
//	*  zero or more digits, anywhere in the pattern
//
// Patterns are matched against normalized (digit-only) numbers and must
// cover the whole number: "138*" is a prefix match, "*5678" a suffix match,
// "138????" an exact-length match.
package pattern

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidPattern is matched by every *InvalidPatternError via errors.Is.
var ErrInvalidPattern = errors.New("invalid pattern")

// InvalidPatternError reports why a pattern was rejected. Pos is the byte
// offset of the first offending character, or -1 for an empty pattern.
type InvalidPatternError struct {
	Pattern string
	Pos     int
	Char    rune
}

func (e *InvalidPatternError) Error() string {
	if e.Pos < 0 {
		return "invalid pattern: pattern must not be empty"
	}
	return fmt.Sprintf("invalid pattern %q: character %q at position %d is not a digit, '*' or '?'", e.Pattern, e.Char, e.Pos)
}

func (e *InvalidPatternError) Is(target error) bool { return target == ErrInvalidPattern }

// Pattern is a compiled wildcard pattern. The zero value matches nothing.
type Pattern struct {
	src     string
	expr    string // src with runs of '*' collapsed
	minLen  int    // digits the number must have at minimum
	hasStar bool
	literal bool // digits only
}

// Validate reports whether s is an acceptable pattern without compiling it.
func Validate(s string) error {
	if s == "" {
		return &InvalidPatternError{Pattern: s, Pos: -1}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isDigit(c) || c == '*' || c == '?' {
			continue
		}
		r, _ := utf8.DecodeRuneInString(s[i:])
		return &InvalidPatternError{Pattern: s, Pos: i, Char: r}
	}
	return nil
}

// Compile validates s and returns its compiled form.
func Compile(s string) (Pattern, error) {
	if err := Validate(s); err != nil {
		return Pattern{}, err
	}
	p := Pattern{src: s, literal: true}
	expr := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '*':
			p.hasStar = true
			p.literal = false
			if len(expr) > 0 && expr[len(expr)-1] == '*' {
				continue
			}
		case '?':
			p.literal = false
			p.minLen++
		default:
			p.minLen++
		}
		expr = append(expr, c)
	}
	p.expr = string(expr)
	return p, nil
}

// MustCompile is Compile that panics on an invalid pattern. Intended for
// tests and constant patterns.
func MustCompile(s string) Pattern {
	p, err := Compile(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source pattern.
func (p Pattern) String() string { return p.src }

// IsLiteral is true when the pattern has no wildcards, so it matches
// exactly one number: the pattern itself.
func (p Pattern) IsLiteral() bool { return p.literal }

// Matches reports whether the normalized number is fully covered by the
// pattern. Numbers containing anything but digits never match.
func (p Pattern) Matches(number string) bool {
	if p.expr == "" || number == "" {
		return false
	}
	if len(number) < p.minLen || (!p.hasStar && len(number) != p.minLen) {
		return false
	}
	for i := 0; i < len(number); i++ {
		if !isDigit(number[i]) {
			return false
		}
	}
	if p.literal {
		return number == p.expr
	}
	return wildcardMatch(p.expr, number)
}

// wildcardMatch is the greedy two-pointer wildcard match: on a mismatch it
// resumes after the most recent '*', letting that star absorb one more
// digit. Only the latest star needs revisiting because '*' and '?' both
// range over the same single class of characters.
func wildcardMatch(expr, number string) bool {
	pi, ni := 0, 0
	star, mark := -1, 0
	for ni < len(number) {
		switch {
		case pi < len(expr) && (expr[pi] == '?' || expr[pi] == number[ni]):
			pi++
			ni++
		case pi < len(expr) && expr[pi] == '*':
			star = pi
			mark = ni
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			ni = mark
		default:
			return false
		}
	}
	for pi < len(expr) && expr[pi] == '*' {
		pi++
	}
	return pi == len(expr)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
