package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"barstatus/internal/app"
)

func main() {
	var settingsPath, logLevel string
	flag.StringVar(&settingsPath, "settings", "", "path to settings file (yaml or json); default searches $XDG_CONFIG_HOME/barstatus")
	flag.StringVar(&logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <feature-list>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "fatal: expected exactly one feature list argument")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := app.Run(ctx, app.Options{
		FeatureList:  flag.Arg(0),
		SettingsPath: settingsPath,
		LogLevel:     logLevel,
		Stdout:       os.Stdout,
	})
	if err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
