// Package naming implements the mixin and model name normalization policies.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/huandu/xstrings"

	"github.com/starford/bootplan/internal/apperr"
)

// Normalization policy names.
const (
	PolicyNone      = "none"
	PolicyClassify  = "classify"
	PolicyDasherize = "dasherize"
)

// Func converts a file stem into a logical name.
type Func func(string) string

// Identity returns s unchanged.
func Identity(s string) string { return s }

var (
	capsRun    = regexp.MustCompile(`([A-Z]+)`)
	nonWord    = regexp.MustCompile(`[\W_]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Classify converts s to PascalCase: "my-mixin", "my_mixin" and "my mixin"
// all become "MyMixin". A capital run starts a word but is lowercased as a
// whole, so "HTMLParser" gives "Htmlparser".
func Classify(s string) string {
	var b strings.Builder
	for _, w := range strings.Fields(split(s)) {
		b.WriteString(xstrings.FirstRuneToUpper(w))
	}
	return b.String()
}

// Dasherize converts s to kebab-case: "TimeStamp" becomes "time-stamp".
// Letters and digits are never separated: "mixin2go" stays "mixin2go".
func Dasherize(s string) string {
	return whitespace.ReplaceAllString(split(s), "-")
}

// split marks every capital run as a word start, then lowercases s with each
// non-alphanumeric character replaced by a space.
func split(s string) string {
	s = strings.TrimSpace(capsRun.ReplaceAllString(s, " $1"))
	return strings.ToLower(nonWord.ReplaceAllString(s, " "))
}

// ModelName derives a model name from a definition file stem:
// "vip-customer" becomes "VipCustomer", "ACLEntry" becomes "AclEntry" and
// "user2fa" becomes "User2Fa".
func ModelName(stem string) string {
	var b strings.Builder
	for _, w := range words(stem) {
		b.WriteString(xstrings.FirstRuneToUpper(strings.ToLower(w)))
	}
	return b.String()
}

// words splits s into acronym runs, capitalized or lowercase words and digit
// runs. An acronym directly followed by a capitalized word gives up its last
// capital to that word. Everything else separates words.
func words(s string) []string {
	rs := []rune(s)
	run := func(i int, in func(rune) bool) int {
		for i < len(rs) && in(rs[i]) {
			i++
		}
		return i
	}

	var out []string
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsUpper(r):
			j := run(i, unicode.IsUpper)
			switch {
			case j < len(rs) && unicode.IsLower(rs[j]) && j-i > 1:
				j--
			case j < len(rs) && unicode.IsLower(rs[j]):
				j = run(j, unicode.IsLower)
			}
			out = append(out, string(rs[i:j]))
			i = j
		case unicode.IsLower(r):
			j := run(i, unicode.IsLower)
			out = append(out, string(rs[i:j]))
			i = j
		case isDigit(r):
			j := run(i, isDigit)
			out = append(out, string(rs[i:j]))
			i = j
		default:
			i++
		}
	}
	return out
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// Policy returns the normalization function registered under name.
// The empty name selects classify; "false" is accepted as an alias of none.
func Policy(name string) (Func, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyClassify:
		return Classify, nil
	case PolicyNone, "false":
		return Identity, nil
	case PolicyDasherize:
		return Dasherize, nil
	default:
		return nil, fmt.Errorf("%w - %q", apperr.ErrInvalidNormalization, name)
	}
}
