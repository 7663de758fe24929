package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dirbs/dirbs-core/internal/dbx"
	"github.com/dirbs/dirbs-core/internal/delta"
	"github.com/dirbs/dirbs-core/internal/importer"
)

// whitelistChangesChannel is the Postgres NOTIFY channel
// internal/migrations/sql/00005_whitelist_notify.sql's trigger posts to
// on every historic_whitelist insert/end_date update.
const whitelistChangesChannel = "whitelist_changes"

func runWhitelist(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: dirbs whitelist {process|distribute} [flags]")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "process":
		return whitelistProcess(ctx, rest)
	case "distribute":
		return whitelistDistribute(ctx, rest)
	default:
		return fmt.Errorf("unknown whitelist subcommand %q", sub)
	}
}

// whitelistProcess imports a whitelist upload the same way `dirbs import
// whitelist <file>` does; it exists as its own subcommand because the
// whitelist list type is the one list the original system lets operators
// push through a dedicated entrypoint (spec.md §6).
func whitelistProcess(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dirbs whitelist process", flag.ExitOnError)
	common := bindCommon(fs)
	deltaMode := fs.Bool("delta", false, "the upload carries a change_type column (add|remove|update)")
	batchLines := fs.Int("batch-lines", 0, "override the staging batch size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: dirbs whitelist process [flags] <file>")
	}
	path := rest[0]

	def, err := importer.Lookup("whitelist")
	if err != nil {
		return err
	}
	in, err := buildInput(path, *deltaMode, *batchLines)
	if err != nil {
		return err
	}

	sub := "process"
	sess, err := bootstrap(ctx, "whitelist", &sub, common)
	if err != nil {
		return err
	}
	var runErr error
	defer func() { sess.finish(ctx, runErr) }()

	report, err := importer.Run(ctx, sess.rc, def, in)
	runErr = err
	if err != nil {
		return err
	}
	sess.rc.Logger.Info("whitelist process complete",
		"rows_read", report.RowsRead, "added", report.Delta.Added, "removed", report.Delta.Removed, "updated", report.Delta.Updated)
	return nil
}

// whitelistDistribute listens on whitelist_changes and logs each
// notification as it arrives. Forwarding those notifications onward to
// the operator-facing blocking pipeline is out of scope: the Kafka
// distributor that consumes this stream in production is an external
// collaborator, so this subcommand's job ends at "observe and record
// that a change happened."
func whitelistDistribute(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dirbs whitelist distribute", flag.ExitOnError)
	common := bindCommon(fs)
	maxNotifications := fs.Int("max-notifications", 0, "stop after N notifications (0 = run until canceled)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sub := "distribute"
	sess, err := bootstrap(ctx, "whitelist", &sub, common)
	if err != nil {
		return err
	}
	var runErr error
	defer func() { sess.finish(ctx, runErr) }()
	rc := sess.rc

	conn, err := pgx.Connect(ctx, dbx.DSN(rc.Config.DB))
	if err != nil {
		runErr = fmt.Errorf("open listen connection: %w", err)
		return runErr
	}
	defer conn.Close(ctx)

	listener, err := delta.Listen(ctx, conn, whitelistChangesChannel)
	if err != nil {
		runErr = err
		return err
	}
	defer listener.Close(ctx)

	rc.Logger.Info("whitelist distribute listening", "channel", whitelistChangesChannel)

	count := 0
	for *maxNotifications == 0 || count < *maxNotifications {
		n, err := listener.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			runErr = err
			return err
		}
		count++
		rc.Logger.Info("whitelist change notification", "channel", n.Channel, "payload", n.Payload)
		if rc.Metrics != nil {
			rc.Metrics.ListgenRowsWritten.WithLabelValues("", "whitelist_notification").Inc()
		}
	}

	rc.Logger.Info("whitelist distribute complete", "notifications", count)
	return nil
}
