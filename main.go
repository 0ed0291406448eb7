// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/geosan/geosan/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
