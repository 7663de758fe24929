package main

import (
	"context"
	"fmt"
	"os"
)

var subcommands = map[string]func(ctx context.Context, args []string) error{
	"import":    runImport,
	"classify":  runClassify,
	"listgen":   runListgen,
	"db":        runDB,
	"prune":     runPrune,
	"catalog":   runCatalog,
	"report":    runReport,
	"whitelist": runWhitelist,
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dirbs <command> [flags] [args]")
	fmt.Fprintln(os.Stderr, "commands: import, classify, listgen, db, prune, catalog, report, whitelist")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	fn, ok := subcommands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}

	if err := fn(context.Background(), os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "dirbs: "+err.Error())
		os.Exit(1)
	}
}
