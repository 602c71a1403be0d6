// Command jwtgate is a reverse proxy that only forwards requests carrying a
// valid Okta access token.
//
//	jwtgate serve --config jwtgate.yaml
//	jwtgate check --config jwtgate.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	jwtmiddleware "github.com/jwtverifier/go-okta-jwt-middleware"
	"github.com/jwtverifier/go-okta-jwt-middleware/internal/gateway"
)

type rootOptions struct {
	config string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRoot().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "jwtgate",
		Short:         "Okta access token gateway",
		Long:          "jwtgate proxies requests to an upstream after verifying their Okta access token.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.config, "config", "", "Path to the YAML config file")

	cmd.AddCommand(newServeCmd(opts), newCheckCmd(opts))
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := gateway.Load(opts.config)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}

			server, err := gateway.NewServer(cfg, logger)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the auth configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := gateway.Load(opts.config)
			if err != nil {
				return err
			}

			middleware, err := jwtmiddleware.New(cfg.Auth)
			if err != nil {
				return err
			}
			if errs := middleware.Errors(); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintln(cmd.ErrOrStderr(), e)
				}
				return fmt.Errorf("%d configuration error(s)", len(errs))
			}

			fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
			return nil
		},
	}
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger, nil
}
