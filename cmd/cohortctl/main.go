// Command cohortctl drives the cohort ledger API from a terminal through the
// client facade.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-ledger-api/internal/client"
	"github.com/noah-isme/cohort-ledger-api/internal/facade"
	"github.com/noah-isme/cohort-ledger-api/pkg/config"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
	"github.com/noah-isme/cohort-ledger-api/pkg/logger"
)

var _ facade.Backend = (*client.Client)(nil)

// options are the global flags shared by every subcommand.
type options struct {
	baseURL       string
	token         string
	actor         string
	timeout       time.Duration
	lateWeight    float64
	checkVersions bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, cfg, logr); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, cfg *config.Config, logr *zap.Logger) error {
	opts := options{}
	fs := pflag.NewFlagSet("cohortctl", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(out)
	fs.StringVar(&opts.baseURL, "base-url", cfg.Client.BaseURL, "API base URL")
	fs.StringVar(&opts.token, "token", cfg.Client.Token, "Bearer token")
	fs.StringVar(&opts.actor, "actor", "cohortctl", "Recorder written on optimistic attendance records")
	fs.DurationVar(&opts.timeout, "timeout", cfg.Client.Timeout, "Per-request timeout")
	fs.Float64Var(&opts.lateWeight, "late-weight", cfg.Attendance.LateWeight, "Weight of a late mark in presence rates")
	fs.BoolVar(&opts.checkVersions, "check-versions", true, "Reject attendance writes made against a stale record")
	fs.Usage = func() { usage(out, fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		usage(out, fs)
		return errors.New("missing command")
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		usage(out, fs)
		return fmt.Errorf("unknown command %q", name)
	}

	api := client.New(opts.baseURL, opts.token, client.WithTimeout(opts.timeout))
	app := &app{
		out: out,
		facade: facade.New(api, facade.Options{
			Actor:         opts.actor,
			LateWeight:    opts.lateWeight,
			CheckVersions: opts.checkVersions,
			Logger:        logr.Named("facade"),
		}),
	}

	sub := pflag.NewFlagSet(name, pflag.ContinueOnError)
	sub.SetOutput(out)
	exec := cmd.setup(sub)
	if err := sub.Parse(fs.Args()[1:]); err != nil {
		return err
	}
	if sub.NArg() < cmd.args {
		return fmt.Errorf("usage: cohortctl %s %s", name, cmd.usage)
	}
	return exec(ctx, app, sub.Args())
}

func usage(out io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(out, "Usage: cohortctl [flags] <command> [args]")
	fmt.Fprintln(out, "\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out, "\nFlags:")
	fmt.Fprint(out, fs.FlagUsages())
}

func printError(w io.Writer, err error) {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		fmt.Fprintf(w, "cohortctl: %v\n", err)
		return
	}
	fmt.Fprintf(w, "cohortctl: %s (%s)\n", appErr.Message, appErr.Code)
	fields := make([]string, 0, len(appErr.Fields))
	for field := range appErr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(w, "  %s: %s\n", field, appErr.Fields[field])
	}
}
