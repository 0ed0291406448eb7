// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/geosan/geosan/address"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

// eachLine calls fn with every line of stdin, prompting when stdin is a
// terminal.
func eachLine(prompt string, fn func(line string)) error {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprintln(os.Stderr, prompt)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fn(scanner.Text())
	}

	return scanner.Err()
}

var debugSplitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split addresses into street and number",
	Long: `Reads one address per line and prints the normalized street and number
found in it, tab separated.

$ echo "Chemin de Montelly 1bis" | geosan debug split
Chemin de Montelly 1bis	CHEMIN DE MONTELLY	1BIS
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return eachLine("Enter addresses, one per line…", func(line string) {
			street, number := address.Split(address.Normalize(line))
			fmt.Printf("%s\t%s\t%s\n", line, street, number)
		})
	},
}

var debugNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Print the comparison key of names",
	Long: `Reads one name per line and prints its normalized form and, after the
stopwords are removed, the key used for fuzzy street matching.

$ echo "Avenue de l'Église" | geosan debug normalize
Avenue de l'Église	AVENUE DE L'EGLISE	DE L'EGLISE
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		sw := normalizedStopwords(cfg.Match.Stopwords)

		return eachLine("Enter names, one per line…", func(line string) {
			n := address.Normalize(line)
			fmt.Printf("%s\t%s\t%s\n", line, n, sw.Strip(n))
		})
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugSplitCmd)
	debugCmd.AddCommand(debugNormalizeCmd)
}
