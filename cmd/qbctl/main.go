// Command qbctl is the terminal front end of the question bank console.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/config"
	"github.com/stemsi/qbank-console/internal/form"
	"github.com/stemsi/qbank-console/internal/logger"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/session"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workspace"
)

var (
	errNotSignedIn = errors.New("not signed in; run qbctl login")
	errUsage       = errors.New("usage")
)

// app is one qbctl invocation.
type app struct {
	sess   *workspace.Session
	store  *session.FileStore
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	readPassword func() ([]byte, error)
}

func main() {
	cfg := config.Load()

	// Commands print results on stdout; logs stay on stderr and default to
	// warnings only.
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	log := logger.New(os.Stderr, level, cfg.LogFormat)

	validator.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start")
	}
	a.readPassword = func() ([]byte, error) {
		return term.ReadPassword(int(syscall.Stdin))
	}
	os.Exit(a.run(ctx, os.Args[1:]))
}

// newApp restores the persisted session and builds the workspace on top
// of it.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, in io.Reader, out, errOut io.Writer) (*app, error) {
	store := session.NewFileStore(cfg.SessionDir, config.CacheKey.CLISessionKey())
	build := workspace.UpstreamFactory(
		cfg.APIBaseURL,
		func(string) session.Store { return store },
		workspace.Config{
			PageSize:     cfg.PageSize,
			LoadAttempts: 2,
			LoadBackoff:  cfg.ListRetryBackoff,
		},
		log,
		client.WithTimeout(cfg.UpstreamTimeout),
	)
	sess, err := build(ctx, config.CacheKey.CLISessionKey())
	if err != nil {
		return nil, err
	}

	a := &app{
		sess:   sess,
		store:  store,
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
	}
	a.readPassword = a.readLine
	return a, nil
}

// run executes one command line and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		return 2
	}

	cmd, ok := lookup(args[0])
	if !ok {
		fmt.Fprintf(a.errOut, "qbctl: unknown command %q\n\n", args[0])
		a.usage()
		return 2
	}

	fs := flag.NewFlagSet("qbctl "+cmd.name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.Usage = func() {
		fmt.Fprintf(a.errOut, "Usage: qbctl %s %s\n", cmd.name, cmd.args)
		fs.PrintDefaults()
	}

	if cmd.signedIn && !a.sess.Manager.IsLoggedIn() {
		fmt.Fprintln(a.errOut, "qbctl:", errNotSignedIn)
		return 1
	}

	err := cmd.run(a, ctx, fs, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fs.Usage()
		return 2
	}

	if errors.Is(err, client.ErrAuth) && cmd.signedIn {
		_ = a.sess.Manager.Logout(ctx)
	}
	fmt.Fprintln(a.errOut, "qbctl:", describe(err))
	return 1
}

func describe(err error) string {
	var ce *client.Error
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return "invalid name or password"
	case errors.Is(err, session.ErrTokenExpired):
		return "the issued token has already expired"
	case errors.As(err, &ce), errors.Is(err, form.ErrInvalidInput), errors.Is(err, context.DeadlineExceeded):
		return form.Describe(err).Text
	}
	return err.Error()
}

func (a *app) usage() {
	fmt.Fprintln(a.errOut, "Usage: qbctl <command> [flags] [args]")
	fmt.Fprintln(a.errOut)
	fmt.Fprintln(a.errOut, "Commands:")
	for _, c := range commands() {
		fmt.Fprintf(a.errOut, "  %-14s %s\n", c.name, c.summary)
	}
}

// prompt writes p to stderr and reads one line from stdin.
func (a *app) prompt(p string) (string, error) {
	fmt.Fprint(a.errOut, p)
	line, err := a.readLine()
	return string(line), err
}

func (a *app) readLine() ([]byte, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return nil, err
	}
	return []byte(strings.TrimSpace(line)), nil
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04 MST")
}
