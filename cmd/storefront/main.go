package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-storefront/internal/config"
	"github.com/jrsteele09/go-storefront/internal/logger"
	"github.com/jrsteele09/go-storefront/storefront"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	if len(args) == 0 {
		usage()
		return errors.New("no command given")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	c, err := config.New()
	if err != nil {
		return err
	}
	logger.Setup(c.GetLogLevel(), c.GetEnv())
	if args[0] == "login" {
		displayAppname(c.GetAppName())
	}

	nav := &cliNavigator{atLogin: args[0] == "login"}
	app, err := storefront.New(c, storefront.WithNavigator(nav))
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Err(err).Msg("closing storefront")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		return err
	}
	return cmd.run(ctx, app, args[1:])
}

// cliNavigator has no login page to show, so it tells the user to sign in again.
type cliNavigator struct {
	atLogin bool
}

func (n *cliNavigator) AtLogin() bool {
	return n.atLogin
}

func (n *cliNavigator) ToLogin() {
	fmt.Fprintln(os.Stderr, "Your session has expired. Run `storefront login` to sign in again.")
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
