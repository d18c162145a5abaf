package validation

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
)

// maxPasswordBytes is the bcrypt input limit; longer inputs are silently
// truncated by bcrypt, so they are rejected here instead.
const maxPasswordBytes = 72

// maxSimilarity is the ratio at or above which a password counts as too
// close to one of the account's own attributes.
const maxSimilarity = 0.7

//go:embed common_passwords.txt
var commonPasswordsRaw string

var commonPasswords = loadCommonPasswords(commonPasswordsRaw)

var nonWord = regexp.MustCompile(`\W+`)

// PasswordPolicy controls which strength rules apply.
type PasswordPolicy struct {
	MinLength       int
	CheckCommon     bool
	CheckNumeric    bool
	CheckSimilarity bool

	// common replaces the embedded list when set; see WithCommonPasswords.
	common map[string]struct{}
}

// DefaultPasswordPolicy enables every rule with an 8 character minimum.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:       8,
		CheckCommon:     true,
		CheckNumeric:    true,
		CheckSimilarity: true,
	}
}

// WithCommonPasswords returns a copy of p whose common-password rule also
// rejects every word read from r, one per line. Gzip input is accepted.
func (p PasswordPolicy) WithCommonPasswords(r io.Reader) (PasswordPolicy, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return p, fmt.Errorf("open common password list: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	merged := make(map[string]struct{}, len(p.commonSet()))
	for w := range p.commonSet() {
		merged[w] = struct{}{}
	}
	if err := readWords(src, merged); err != nil {
		return p, fmt.Errorf("read common password list: %w", err)
	}
	p.common = merged
	return p, nil
}

func (p PasswordPolicy) commonSet() map[string]struct{} {
	if p.common != nil {
		return p.common
	}
	return commonPasswords
}

// PasswordAttribute is an account value the password must not resemble.
type PasswordAttribute struct {
	Name  string
	Value string
}

// Check returns every rule the password breaks, in a stable order.
func (p PasswordPolicy) Check(password string, attrs ...PasswordAttribute) []string {
	var msgs []string

	if p.CheckSimilarity {
		if name, ok := tooSimilar(password, attrs); ok {
			msgs = append(msgs, fmt.Sprintf("The password is too similar to the %s.", name))
		}
	}
	if p.MinLength > 0 && utf8.RuneCountInString(password) < p.MinLength {
		msgs = append(msgs, fmt.Sprintf("This password is too short. It must contain at least %d characters.", p.MinLength))
	}
	if len(password) > maxPasswordBytes {
		msgs = append(msgs, fmt.Sprintf("This password is too long. It must contain at most %d bytes.", maxPasswordBytes))
	}
	if p.CheckCommon {
		if _, ok := p.commonSet()[strings.ToLower(strings.TrimSpace(password))]; ok {
			msgs = append(msgs, "This password is too common.")
		}
	}
	if p.CheckNumeric && isNumeric(password) {
		msgs = append(msgs, "This password is entirely numeric.")
	}
	return msgs
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// tooSimilar compares the password with each attribute value and with the
// word fragments of that value. Fragments far shorter than the password are
// skipped since they cannot reach the ratio.
func tooSimilar(password string, attrs []PasswordAttribute) (string, bool) {
	pw := strings.ToLower(password)
	for _, attr := range attrs {
		value := strings.ToLower(strings.TrimSpace(attr.Value))
		if value == "" {
			continue
		}
		parts := append(nonWord.Split(value, -1), value)
		for _, part := range parts {
			if part == "" || exceedsLengthRatio(pw, part) {
				continue
			}
			if similarity(pw, part) >= maxSimilarity {
				return attr.Name, true
			}
		}
	}
	return "", false
}

func exceedsLengthRatio(password, value string) bool {
	pwLen := utf8.RuneCountInString(password)
	valueLen := utf8.RuneCountInString(value)
	return pwLen >= 10*valueLen && float64(valueLen) < maxSimilarity/2*float64(pwLen)
}

// similarity is 2*M/T where M is the number of characters the two strings
// share, counted with multiplicity and ignoring order, and T is their
// combined length.
func similarity(a, b string) float64 {
	counts := make(map[rune]int)
	total := 0
	for _, r := range b {
		counts[r]++
		total++
	}

	matches := 0
	for _, r := range a {
		total++
		if counts[r] > 0 {
			counts[r]--
			matches++
		}
	}
	if total == 0 {
		return 1
	}
	return 2 * float64(matches) / float64(total)
}

func loadCommonPasswords(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	if err := readWords(strings.NewReader(raw), set); err != nil {
		panic(err)
	}
	return set
}

func readWords(r io.Reader, into map[string]struct{}) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			into[strings.ToLower(w)] = struct{}{}
		}
	}
	return sc.Err()
}
