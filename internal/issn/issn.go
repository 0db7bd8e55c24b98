// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package issn validates International Standard Serial Numbers.
package issn

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid reports input that is not syntactically an ISSN.
var ErrInvalid = errors.New("invalid ISSN")

// pattern matches the canonical NNNN-NNNX form. The check digit may be
// the roman numeral X (value ten).
var pattern = regexp.MustCompile(`^\d{4}-\d{3}[0-9Xx]$`)

// Validate checks that s is syntactically a valid ISSN (NNNN-NNNX).
func Validate(s string) error {
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: %q (want NNNN-NNNX)", ErrInvalid, s)
	}
	return nil
}

// Normalize validates s and returns its canonical form with an
// upper-case check digit.
func Normalize(s string) (string, error) {
	if err := Validate(s); err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

// ChecksumOK reports whether the check digit of a syntactically valid
// ISSN verifies under the mod-11 scheme. Registries carry a handful of
// ISSNs that never verified, so callers warn on mismatch rather than
// reject.
func ChecksumOK(s string) bool {
	if !pattern.MatchString(s) {
		return false
	}
	s = strings.ToUpper(s)

	sum := 0
	weight := 8
	for _, r := range s[:4] + s[5:8] {
		sum += int(r-'0') * weight
		weight--
	}
	check := (11 - sum%11) % 11

	if check == 10 {
		return s[8] == 'X'
	}
	return s[8] == byte('0'+check)
}
