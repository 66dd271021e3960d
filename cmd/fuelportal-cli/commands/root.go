package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"myfuelportal-backend/internal/components/telemetry"
	"myfuelportal-backend/internal/credentials"
	"myfuelportal-backend/internal/scrapers/fuelportal"
	"myfuelportal-backend/lib/configutil"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	verbose     bool
	targetUrl   string
	username    string
	cookiesPath string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "config.json5", "The config file to read, a <name>.local.json5 next to it overrides it.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log debug messages.")
	flags.StringVar(&targetUrl, "url", "", "The tank page of the portal.")
	flags.StringVarP(&username, "username", "u", "", "The username (email) to log in with.")
	flags.StringVar(&cookiesPath, "cookies", "", "The file to keep session cookies in.")
}

var rootCmd = &cobra.Command{
	Use:   "fuelportal-cli",
	Short: "fuelportal-cli reads the state of a heating oil tank off My Fuel Portal.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)
		ctx := cmd.Context()

		config, err := configutil.ReadConfig[Config](configPath)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no config file found, using flags only", "path", configPath)
		} else if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if targetUrl != "" {
			config.TargetUrl = targetUrl
		}
		if username != "" {
			config.Username = username
		}
		if cookiesPath != "" {
			config.Cookies.File = cookiesPath
		}

		telConfig, err := configutil.ReadRecursively[telemetry.Config](afero.NewOsFs(), ".", "telemetry.json5")
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read telemetry config: %w", err)
		}
		otel, err := telemetry.Setup(ctx, "fuelportal-cli", telConfig)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}

		cmd.SetContext(setGlobals(ctx, &globals{
			config:  config,
			tel:     telemetry.SlogAPI{},
			otel:    otel,
			keyring: credentials.NewKeyring(),
		}))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return getGlobals(cmd.Context()).otel.Shutdown(ctx)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	slog.Error("command failed", "err", err)
	if errors.Is(err, fuelportal.ErrAuthentication) {
		fmt.Fprintln(os.Stderr, "The portal rejected the credentials, check the username and run `fuelportal-cli keyring set` to update the password.")
	}
	os.Exit(1)
}
