package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"watershed/internal/config"
	"watershed/internal/resources"
	"watershed/pkg/pump"
)

var (
	version = "dev"
	commit  = "none"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errNoCommand is returned when watershed runs without a subcommand.
var errNoCommand = errors.New("no command given")

// storeFactory opens the object store named by an upload config.
type storeFactory func(ctx context.Context, cfg resources.S3Config, creds resources.Credentials) (resources.ObjectStore, error)

// app carries what commands share once flags, environment and profile
// have been resolved.
type app struct {
	client   *pump.Client
	env      *config.Config
	logger   *slog.Logger
	newStore storeFactory
}

func newApp() *app {
	return &app{
		client: pump.NewClient(pump.DefaultBaseURL),
		env:    &config.Config{},
		logger: slog.Default(),
		newStore: func(ctx context.Context, cfg resources.S3Config, creds resources.Credentials) (resources.ObjectStore, error) {
			return resources.NewS3Store(ctx, cfg, creds)
		},
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return execute(ctx, newRootCmd(), os.Stdout, os.Stderr)
}

func execute(ctx context.Context, rootCmd *cobra.Command, stdout, stderr io.Writer) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	if errors.Is(err, errNoCommand) {
		return exitUsage
	}

	if getOutputFormat(rootCmd) == "json" {
		errObj := map[string]interface{}{
			"error": err.Error(),
		}
		var apiErr *pump.APIError
		if errors.As(err, &apiErr) {
			errObj["http_status"] = apiErr.HTTPStatus
		}
		switch {
		case errors.Is(err, pump.ErrServiceUnreachable):
			errObj["kind"] = "service_unreachable"
		case errors.Is(err, pump.ErrInvalidJobResponse):
			errObj["kind"] = "invalid_job_response"
		}
		_ = PrintJSON(stdout, errObj)
	} else {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitError
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(newApp())
}

func newRootCmdWith(a *app) *cobra.Command {
	var (
		host     string
		output   string
		profile  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "watershed",
		Short: "Watershed cluster CLI",
		Long: "Command-line interface for a Watershed cluster: submit, preview and follow\n" +
			"Pump jobs, and upload bootstrap resources to S3.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errNoCommand
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			env, err := config.LoadFromEnv()
			if err != nil {
				return err
			}

			// Config file is optional
			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = &UserConfig{
					CurrentProfile: "default",
					Profiles:       map[string]Profile{},
				}
			}

			if !cmd.Flags().Changed("profile") {
				profile = env.Profile
			}
			p, profileErr := cfg.ActiveProfile(profile)
			if profileErr != nil && !profileOptional(cmd) {
				return profileErr
			}

			// Apply precedence: flag > env > profile > default
			host = resolve(cmd, "host", host, env.Host, p.Host)
			output = resolve(cmd, "output", output, env.Output, p.Output)
			logLevel = resolve(cmd, "log-level", logLevel, env.LogLevel, p.LogLevel)

			baseURL, err := normalizeHostURL(host)
			if err != nil {
				return err
			}
			if err := validateOutputFormat(output); err != nil {
				return err
			}
			if logLevel != "" {
				if err := validateLogLevel(logLevel); err != nil {
					return err
				}
			}

			env.LogLevel = logLevel
			logger := config.NewLogger(cmd.ErrOrStderr(), env.SlogLevel())
			for _, w := range env.Warnings {
				logger.Warn(w)
			}
			if profileErr != nil {
				logger.Warn("ignoring profile", "error", profileErr)
			}

			a.env = env
			a.logger = logger
			a.client.BaseURL = baseURL
			a.client.Logger = logger
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", pump.DefaultBaseURL, "Pump service URL, or a cluster master URL to which /pump is appended")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "O", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Pump job commands
	rootCmd.AddCommand(newCreateJobCmd(a))
	rootCmd.AddCommand(newPreviewJobCmd(a))
	rootCmd.AddCommand(newGetJobCmd(a))
	rootCmd.AddCommand(newGetAllJobsCmd(a))

	// Cluster resources
	rootCmd.AddCommand(newUploadResourcesCmd(a))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())

	// Shell completions
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// resolve picks the flag value when it was set on the command line, then the
// first non-empty of env and profile, and otherwise keeps the flag default.
func resolve(cmd *cobra.Command, flag, current, env, profile string) string {
	if cmd.Flags().Changed(flag) {
		return current
	}
	if env != "" {
		return env
	}
	if profile != "" {
		return profile
	}
	return current
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
