package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-btp-connectivity/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := config.New()
	zerolog.SetGlobalLevel(c.GetLogLevel())
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := NewRootCommand(ctx, c).Execute(); err != nil {
		stop()
		os.Exit(1)
	}
}

// NewRootCommand creates the btpdest command tree.
func NewRootCommand(ctx context.Context, c config.Config) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:          "btpdest",
		Short:        "resolves OAuth2 destinations from service bindings",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if !quiet {
				displayAppname(cmd, c.GetAppName())
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "do not print the banner")
	cmd.AddCommand(NewResolveCommand(ctx))
	return cmd
}

func displayAppname(cmd *cobra.Command, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(cmd.ErrOrStderr(), myFigure.String())
}
