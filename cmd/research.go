package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var researchFile string

var researchCmd = &cobra.Command{
	Use:   "research [competitor...]",
	Short: "Research competitors and write JSON records",
	Long:  "Runs one web-search-enabled research pass per competitor concurrently and writes a structured JSON record for each into the output folder.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateResearch(); err != nil {
			return err
		}

		names, err := gatherNames(args, researchFile)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return eris.New("research: no competitor names given (pass names as args or --file)")
		}

		r, _, ledger := initResearcher(ctx)
		if ledger != nil {
			defer ledger.Close() //nolint:errcheck
		}

		paths := r.RunAll(ctx, names)
		for _, p := range paths {
			fmt.Println(p)
		}

		if len(paths) < len(names) {
			return eris.Errorf("research: %d of %d competitors failed", len(names)-len(paths), len(names))
		}
		return nil
	},
}

// gatherNames merges positional names with the optional names file.
// File format: one name per line, blank lines and #-comments ignored.
func gatherNames(args []string, file string) ([]string, error) {
	var names []string
	seen := make(map[string]struct{})
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || strings.HasPrefix(name, "#") {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, a := range args {
		add(a)
	}

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, eris.Wrapf(err, "research: open names file %s", file)
		}
		defer f.Close() //nolint:errcheck

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			add(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, eris.Wrapf(err, "research: read names file %s", file)
		}
	}

	return names, nil
}

func init() {
	researchCmd.Flags().StringVar(&researchFile, "file", "", "file with one competitor name per line")
	rootCmd.AddCommand(researchCmd)
}
