// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/kirkas-siivous/kirkas/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
