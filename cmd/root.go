/*
Copyright © 2024 Rémi Ferrand

Contributor(s): Rémi Ferrand <riton.github_at_gmail.com>, 2024

This software is governed by the CeCILL license under French law and
abiding by the rules of distribution of free software.  You can  use,
modify and/ or redistribute the software under the terms of the CeCILL
license as circulated by CEA, CNRS and INRIA at the following URL
"http://www.cecill.info".

As a counterpart to the access to the source code and  rights to copy,
modify and redistribute granted by the license, users are provided only
with a limited warranty  and the software's author,  the holder of the
economic rights,  and the successive licensors  have only  limited
liability.

In this respect, the user's attention is drawn to the risks associated
with loading,  using,  modifying and/or developing or reproducing the
software by the user in light of its specific status of free software,
that may mean  that it is complicated to manipulate,  and  that  also
therefore means  that it is reserved for developers  and  experienced
professionals having in-depth computer knowledge. Users are therefore
encouraged to load and test the software's suitability as regards their
requirements in conditions enabling the security of their systems and/or
data to be ensured and,  more generally, to use and operate it in the
same conditions as regards security.

The fact that you are presently reading this means that you have had
knowledge of the CeCILL license and that you accept its terms.
*/
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "greetd",
	Short: "Serve a static greeting page and an optional health endpoint",
	Long: `greetd serves a fixed HTML greeting on / and, in the health variant,
a JSON liveness payload on /health.

The listening port is read from the PORT environment variable (health
variant only) and defaults to 3000. Other settings use the GREETD_ prefix,
for example GREETD_GREETING or GREETD_SHUTDOWN_DELAY.`,
	Args:         cobra.NoArgs,
	RunE:         rootCmdRunE,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")

	rootCmd.Flags().BoolP("debug", "d", false, "Enable debug mode")
	viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))

	rootCmd.Flags().String("variant", defaultVariant, "server variant: basic or health")
	viper.BindPFlag("variant", rootCmd.Flags().Lookup("variant"))
}

func setupSigHandlers(ctx context.Context) context.Context {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	nctx, nctxCancel := context.WithCancel(ctx)

	go func() {
		sig := <-sigs
		slog.Debug("received signal", "signal", sig.String(), "component", "main")
		nctxCancel()
	}()

	return nctx
}

func rootCmdRunE(cmd *cobra.Command, args []string) error {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	log := slog.With("component", "main")

	cfg, err := loadConfig(viper.GetViper(), cfgFile)
	if err != nil {
		log.Error("loading configuration", "error", err)
		return err
	}

	if cfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	log.Debug("greetd configuration", "config", cfg)

	return run(rootCtx, setupSigHandlers(rootCtx), cfg)
}

// run serves until stopCtx is done or the server fails. In-flight requests
// keep baseCtx, so they are not cut off by the stop signal itself.
func run(baseCtx, stopCtx context.Context, cfg config) error {
	log := slog.With("component", "main")

	srv := newServer(baseCtx, cfg)

	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-stopCtx.Done():
	}

	if err := srv.Shutdown(); err != nil {
		log.Error("shutting down HTTP server", "error", err.Error())
		return err
	}

	return <-serveErr
}
