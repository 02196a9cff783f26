package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarmee/internal/config"
	"github.com/oshokin/alarmee/internal/service/client"
	"github.com/oshokin/alarmee/internal/version"
)

var (
	// connection holds the flags shared by every subcommand.
	connection client.Options
	// scheduleOpts collects the schedule flags.
	scheduleOpts client.ScheduleOptions
	// watchTypes filters watch output.
	watchTypes []string
	// exportPath is the iCalendar destination.
	exportPath string

	// rootCmd represents the base command of the alarm client.
	rootCmd = &cobra.Command{
		Use:   "alarmee",
		Short: "Schedule and inspect alarms on an alarmee server.",
		Long: `Client for alarmee-server.

Alarm times are wall-clock local date-times (2006-01-02T15:04:05) in the
alarm's timezone. Times already in the past move forward by the repeat
policy, or by whole days for one-shot alarms.
Server address can be provided with --server or loaded from configuration file.`,
		SilenceUsage: true,
	}

	scheduleCmd = &cobra.Command{
		Use:   "schedule",
		Short: "Schedule or replace an alarm.",
		Long: `Schedules an alarm and prints its id and first occurrence.

An id is generated when --id is omitted. Scheduling an existing id replaces it.
Repeat policies: none, hourly, daily, weekly, monthly, yearly, custom (--every).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scheduleOpts.Options = connection
			scheduleOpts.Options.Out = cmd.OutOrStdout()

			return client.Schedule(cmd.Context(), &scheduleOpts)
		},
	}

	cancelCmd = &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an alarm; unknown ids are ignored.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Cancel(cmd.Context(), withOut(cmd), args[0])
		},
	}

	cancelAllCmd = &cobra.Command{
		Use:   "cancel-all",
		Short: "Cancel every alarm.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.CancelAll(cmd.Context(), withOut(cmd))
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List scheduled alarms with their next occurrence.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.List(cmd.Context(), withOut(cmd))
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Stream fired alarms, notification actions and push tokens.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Watch(cmd.Context(), withOut(cmd), watchTypes)
		},
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export scheduled alarms as an iCalendar file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Export(cmd.Context(), withOut(cmd), exportPath)
		},
	}

	actionCmd = &cobra.Command{
		Use:   "action <alarm-id> <action-id>",
		Short: "Report a notification action tap.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.ReportAction(cmd.Context(), withOut(cmd), args[0], args[1])
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "push-token <token>",
		Short: "Report a refreshed push token.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.ReportPushToken(cmd.Context(), withOut(cmd), args[0])
		},
	}
)

// withOut returns the shared connection options bound to cmd's output.
func withOut(cmd *cobra.Command) *client.Options {
	opts := connection
	opts.Out = cmd.OutOrStdout()

	return &opts
}

// Execute runs the alarmee CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&connection.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&connection.ServerAddress, "server", "", "server address, overrides settings")

	scheduleFlags := scheduleCmd.Flags()
	scheduleFlags.StringVar(&scheduleOpts.ID, "id", "", "alarm id, generated when empty")
	scheduleFlags.StringVarP(&scheduleOpts.Title, "title", "t", "", "notification title")
	scheduleFlags.StringVarP(&scheduleOpts.Body, "body", "b", "", "notification body")
	scheduleFlags.StringVar(&scheduleOpts.FireAt, "at", "", "local date-time of the first occurrence")
	scheduleFlags.StringVar(&scheduleOpts.Timezone, "tz", "", "IANA timezone of --at")
	scheduleFlags.StringVarP(&scheduleOpts.Repeat, "repeat", "r", "", "repeat policy")
	scheduleFlags.DurationVar(&scheduleOpts.Every, "every", 0, "interval of the custom repeat policy")
	scheduleFlags.StringArrayVar(&scheduleOpts.Actions, "action", nil, "action button as id or id:label, repeatable")
	scheduleFlags.StringVar(&scheduleOpts.Icon, "icon", "", "notification icon")
	scheduleFlags.StringVar(&scheduleOpts.Color, "color", "", "notification accent color")
	scheduleFlags.StringVar(&scheduleOpts.Sound, "sound", "", "notification sound")
	scheduleFlags.StringVar(&scheduleOpts.ImageURL, "image", "", "URL of an image to attach")
	scheduleFlags.StringVar(&scheduleOpts.DeepLink, "link", "", "deep link opened on tap")
	scheduleFlags.StringVar(&scheduleOpts.Channel, "channel", "", "Android notification channel")
	scheduleFlags.StringToStringVar(&scheduleOpts.Data, "data", nil, "extra key=value payload")
	scheduleFlags.BoolVar(&scheduleOpts.Exact, "exact", false, "request exact delivery where allowed")

	watchCmd.Flags().StringSliceVar(&watchTypes, "type", nil, "event types to show, all when empty")
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "-", "calendar file, - for stdout")

	rootCmd.AddCommand(scheduleCmd, cancelCmd, cancelAllCmd, listCmd, watchCmd, exportCmd, actionCmd, tokenCmd)
}
