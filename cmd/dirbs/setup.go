// Command dirbs is the DIRBS Core CLI: the single binary driving every
// import, classification and list-generation run (spec.md §6). It uses
// stdlib flag plus manual subcommand dispatch rather than a CLI
// framework, matching the teacher's own cmd/kubernaut convention (a
// plain main(), no cobra/urfave tree).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dirbs/dirbs-core/internal/config"
	"github.com/dirbs/dirbs-core/internal/dbx"
	"github.com/dirbs/dirbs-core/internal/jobs"
	"github.com/dirbs/dirbs-core/internal/logging"
	"github.com/dirbs/dirbs-core/internal/metrics"
	"github.com/dirbs/dirbs-core/internal/runctx"
)

// commonOpts are the flags every subcommand accepts (spec.md §6: "All
// subcommands accept --verbose, DB connection flags, statsd flags,
// multiprocessing flags").
type commonOpts struct {
	configFile string
	verbose    bool
	currDate   string

	dbHost     string
	dbPort     int
	dbName     string
	dbUser     string
	dbPassword string

	statsdHost string
	statsdPort int

	maxLocalCPUs int
}

func bindCommon(fs *flag.FlagSet) *commonOpts {
	o := &commonOpts{}
	fs.StringVar(&o.configFile, "config", "", "path to config.yml (default: DIRBS_CONFIG_FILE or built-in search path)")
	fs.BoolVar(&o.verbose, "verbose", false, "enable debug logging")
	fs.StringVar(&o.currDate, "curr-date", "", "fix the run's clock to YYYYMMDD instead of system time")
	fs.StringVar(&o.dbHost, "db-host", "", "override db.host")
	fs.IntVar(&o.dbPort, "db-port", 0, "override db.port")
	fs.StringVar(&o.dbName, "db-name", "", "override db.database")
	fs.StringVar(&o.dbUser, "db-user", "", "override db.user")
	fs.StringVar(&o.dbPassword, "db-password", "", "override db.password")
	fs.StringVar(&o.statsdHost, "statsd-host", "", "override statsd.host")
	fs.IntVar(&o.statsdPort, "statsd-port", 0, "override statsd.port")
	fs.IntVar(&o.maxLocalCPUs, "max-local-cpus", 0, "override multiprocessing.max_local_cpus")
	return o
}

func (o *commonOpts) applyOverrides(cfg *config.Config) {
	if o.dbHost != "" {
		cfg.DB.Host = o.dbHost
	}
	if o.dbPort != 0 {
		cfg.DB.Port = o.dbPort
	}
	if o.dbName != "" {
		cfg.DB.Database = o.dbName
	}
	if o.dbUser != "" {
		cfg.DB.User = o.dbUser
	}
	if o.dbPassword != "" {
		cfg.DB.Password = o.dbPassword
	}
	if o.statsdHost != "" {
		cfg.Statsd.Host = o.statsdHost
	}
	if o.statsdPort != 0 {
		cfg.Statsd.Port = o.statsdPort
	}
	if o.maxLocalCPUs != 0 {
		cfg.Multiprocessing.MaxLocalCPUs = o.maxLocalCPUs
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
}

func (o *commonOpts) clock() (runctx.Clock, error) {
	if o.currDate == "" {
		return runctx.SystemClock{}, nil
	}
	t, err := time.Parse("20060102", o.currDate)
	if err != nil {
		return nil, fmt.Errorf("invalid --curr-date %q: %w", o.currDate, err)
	}
	return runctx.FixedClock{At: t}, nil
}

// session bundles one subcommand invocation's live resources, released
// by session.finish on every exit path.
type session struct {
	rc    runctx.RunContext
	jobs  *jobs.Store
	runID int64
	cmd   string
	sub   *string
}

// bootstrap loads config, builds the logger/metrics, opens the database
// pools and starts a job_metadata row, returning a ready RunContext. The
// caller must defer s.finish(err) to record the run's outcome and
// release every resource.
func bootstrap(ctx context.Context, command string, subcommand *string, o *commonOpts) (*session, error) {
	path := o.configFile
	if path == "" {
		path = config.ResolvePath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	o.applyOverrides(cfg)

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	clock, err := o.clock()
	if err != nil {
		return nil, err
	}

	m := metrics.New("dirbs", "")

	pools, err := dbx.Open(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	store := jobs.New(pools.Metadata)
	runID, err := store.Start(ctx, command, subcommand, strings.Join(os.Args, " "))
	if err != nil {
		pools.Close()
		return nil, err
	}

	rc := runctx.RunContext{
		Config:  cfg,
		Logger:  logger.WithValues("command", command, "run_id", runID),
		Metrics: m,
		Pools:   pools,
		RunID:   runID,
		Clock:   clock,
	}
	return &session{rc: rc, jobs: store, runID: runID, cmd: command, sub: subcommand}, nil
}

// finish records the run's terminal status and releases every resource
// bootstrap acquired. Call via defer immediately after a successful
// bootstrap.
func (s *session) finish(ctx context.Context, runErr error) {
	if runErr != nil {
		if err := s.jobs.Failure(ctx, s.cmd, s.runID, runErr.Error()); err != nil {
			s.rc.Logger.Error(err, "failed to record job failure")
		}
	} else {
		if err := s.jobs.Success(ctx, s.cmd, s.runID); err != nil {
			s.rc.Logger.Error(err, "failed to record job success")
		}
	}
	s.rc.Pools.Close()
}
