// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// "20 AVENUE LONGCHAMPS": leading number, then the name.
var leadingNumber = regexp.MustCompile(`^(\d+).*?\s+(.+)`)

// Split separates a free-text address into street name and street number.
// The number is empty when none can be found; malformed input is returned
// whole as the street name.
//
//	Split("CHEMIN DE MONTELLY 1")  // "CHEMIN DE MONTELLY", "1"
//	Split("AVENUE DE MORGES 9B")   // "AVENUE DE MORGES", "9B"
//	Split("20 AVENUE LONGCHAMPS")  // "AVENUE LONGCHAMPS", "20"
//	Split("EMS DE L'OURS")         // "EMS DE L'OURS", ""
func Split(s string) (street, number string) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return s, ""
	}

	if s[0] >= '0' && s[0] <= '9' {
		m := leadingNumber.FindStringSubmatch(s)
		if m == nil {
			return s, ""
		}

		return m[2], m[1]
	}

	parts := splitAtNumbers(s)
	if len(parts) == 1 {
		return s, ""
	}

	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

// splitAtNumbers cuts s at every position where a digit follows a letter,
// possibly with whitespace in between. The whitespace is dropped.
func splitAtNumbers(s string) []string {
	rs := []rune(s)

	var (
		parts []string
		start int
	)

	for i := 0; i < len(rs); i++ {
		if !isLetter(rs[i]) {
			continue
		}

		j := i + 1
		for j < len(rs) && unicode.IsSpace(rs[j]) {
			j++
		}

		if j < len(rs) && rs[j] >= '0' && rs[j] <= '9' {
			parts = append(parts, string(rs[start:i+1]))
			start = j
			i = j - 1
		}
	}

	return append(parts, string(rs[start:]))
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-' || (r >= 'À' && r <= 'ÿ')
}

var digitRun = regexp.MustCompile(`\d+`)

// LeadingNumber returns the first run of digits in a street number
// ("9B" -> 9). ok is false when there is none.
func LeadingNumber(number string) (n int, ok bool) {
	run := digitRun.FindString(number)
	if run == "" {
		return 0, false
	}

	n, err := strconv.Atoi(run)
	if err != nil {
		return 0, false
	}

	return n, true
}
