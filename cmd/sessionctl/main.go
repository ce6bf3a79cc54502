package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-client/internal/bootstrap"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			log.Error().Err(err).Msg("sessionctl failed")
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	fs := flag.NewFlagSet("sessionctl", flag.ContinueOnError)
	fs.SetOutput(stdout)
	configPath := fs.String("config", os.Getenv("CONFIG_PATH"), "config file path")
	envFile := fs.String("env-file", ".env", "dotenv file loaded before the environment is read")
	quiet := fs.Bool("quiet", false, "do not print the banner")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		usage(fs)
		return flag.ErrHelp
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		usage(fs)
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	config.LoadDotEnv(*envFile)
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := logging.Configure(cfg.GetEnv(), cfg.GetLogLevel(), os.Stderr)
	if !*quiet {
		displayAppname(stdout, cfg.GetAppName())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(app); err != nil && returnError == nil {
			returnError = err
		}
	}()

	app.Session.RestoreSession(ctx)
	return cmd.run(ctx, app, fs.Args()[1:], stdout)
}

func shutdown(app *bootstrap.App) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Close(ctx); err != nil {
		return fmt.Errorf("app.Close: %w", err)
	}
	return nil
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "Usage: sessionctl [flags] <command> [command flags]\n\nCommands:\n")
	for _, name := range commandOrder {
		fmt.Fprintf(out, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(out, "\nFlags:\n")
	fs.PrintDefaults()
	fmt.Fprintf(out, "\n%s\n", config.Usage())
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
