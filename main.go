package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/Almirante-Ming/Rose/client"
	"github.com/Almirante-Ming/Rose/config"
	"github.com/Almirante-Ming/Rose/logging"
	"go.uber.org/zap"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":      {"login [-remember] [-password pw] <email or phone>", runLogin},
	"logout":     {"logout", runLogout},
	"whoami":     {"whoami", runWhoami},
	"status":     {"status", runStatus},
	"url":        {"url [-reset] [new base url]", runURL},
	"bookings":   {"bookings [-date YYYY-MM-DD | -from YYYY-MM-DD -to YYYY-MM-DD]", runBookings},
	"book":       {"book -date YYYY-MM-DD -time HH:MM -trainer id -machine id [-customer id] [-message text]", runBook},
	"cancel":     {"cancel [-reason text] <booking id>", runCancel},
	"reschedule": {"reschedule -at 'YYYY-MM-DD HH:MM' <booking id>", runReschedule},
	"confirm":    {"confirm <booking id>", runConfirm},
	"persons":    {"persons [-name text] [-type admin|trainer|customer] [-sort id|name|created] [-desc]", runPersons},
	"machines":   {"machines [-name text] [-sort id|name] [-desc]", runMachines},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	name, rest := args[0], args[1:]
	cmd, known := commands[name]

	if !known && name != "serve" {
		fmt.Fprintf(stderr, "rose: unknown command '%v'\n", name)
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()

	if err != nil {
		fmt.Fprintln(stderr, "rose:", err)
		return 1
	}

	output := "stderr"

	if name == "serve" {
		output = "stdout"
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel, output)

	if err != nil {
		fmt.Fprintln(stderr, "rose:", err)
		return 1
	}

	defer logger.Sync()

	logger = logger.With(zap.String("component", "main"))

	if name == "serve" {
		err = serve(ctx, cfg, logger)
	} else {
		err = runCommand(ctx, cfg, logger, cmd, rest, stdin, stdout, stderr)
	}

	if errors.Is(err, flag.ErrHelp) {
		return 2
	}

	if err != nil {
		logger.Debug("command failed", zap.String("command", name), zap.Error(err))
		fmt.Fprintln(stderr, "rose:", client.Describe(err))
		return 1
	}

	return 0
}

func runCommand(ctx context.Context, cfg config.Config, logger *zap.Logger, cmd command, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a, err := newApp(ctx, cfg, logger, stdin, stdout, stderr)

	if err != nil {
		return err
	}

	defer a.Close()

	return cmd.run(ctx, a, args)
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))

	for name := range commands {
		names = append(names, name)
	}

	sort.Strings(names)

	fmt.Fprintln(w, "usage: rose <command> [flags]")
	fmt.Fprintln(w)

	for _, name := range names {
		fmt.Fprintln(w, "  rose", commands[name].usage)
	}

	fmt.Fprintln(w, "  rose serve")
}
