// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package fmtutils formats counts for command summaries.
package fmtutils

import (
	"math"
	"strconv"
)

// Separator groups thousands, Swiss style.
const Separator = '\''

// FormatInt formats an integer with a thousands separator.
func FormatInt(n int64) string {
	in := strconv.FormatInt(n, 10)

	sign := ""
	if n < 0 {
		sign, in = "-", in[1:]
	}

	out := make([]byte, 0, len(in)+len(in)/3)
	for i := range len(in) {
		if i > 0 && (len(in)-i)%3 == 0 {
			out = append(out, Separator)
		}

		out = append(out, in[i])
	}

	return sign + string(out)
}

// Percent returns part/total as a percentage rounded to two decimals.
// A zero total yields zero.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}

	return math.Round(float64(part)*10000/float64(total)) / 100
}
