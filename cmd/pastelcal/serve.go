package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pastelcal/internal/config"
	"pastelcal/internal/holiday"
	"pastelcal/internal/ics"
	appLog "pastelcal/internal/log"
	"pastelcal/internal/reminder"
	"pastelcal/internal/store"
	"pastelcal/internal/validate"
	"pastelcal/internal/web"
)

type serveFlags struct {
	listen   string
	noImport bool
}

func newServeCmd(root *rootFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the calendar HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, flags)
		},
	}
	cmd.Flags().StringVar(&flags.listen, "listen", "", "HTTP listen address (overrides config if set)")
	cmd.Flags().BoolVar(&flags.noImport, "no-import", false, "Skip the holiday import on start")
	return cmd
}

func runServe(parent context.Context, root *rootFlags, flags *serveFlags) error {
	appLog.Info("pastelcal starting", "version", version)

	conf, err := config.Load(root.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", root.configPath)
		return err
	}

	if root.verbosity == 0 {
		level, err := appLog.ParseLevel(conf.LogLevel)
		if err != nil {
			appLog.Error("invalid log level; using info", err, "log_level", conf.LogLevel)
		}
		appLog.SetLevel(level)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"holiday_url_set", conf.Holiday.URL != "",
		"holiday_refresh", conf.Holiday.Refresh,
		"reminder_poll", conf.PollInterval().String(),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inbox := reminder.NewInbox(conf.Reminder.InboxSize)
	scheduler := reminder.NewScheduler(
		reminder.Multi{reminder.LogNotifier{}, inbox},
		reminder.WithInterval(conf.PollInterval()),
	)
	defer scheduler.Close()

	events := store.New(validate.New(), scheduler)

	var importer *holiday.Importer
	if conf.Holiday.URL != "" {
		// Zero in the config means no retries; the fetcher reads zero as default.
		retries := conf.Holiday.MaxRetries
		if retries == 0 {
			retries = -1
		}
		feed := holiday.FetcherFeed{
			Fetcher: ics.NewFetcher(ics.FetcherConfig{
				Timeout:    conf.HolidayTimeout(),
				MaxRetries: retries,
			}),
			Source: ics.Source{ID: "holidays", URL: conf.Holiday.URL},
		}
		importer = holiday.NewImporter(feed, events, holiday.Options{
			DefaultTitle:       conf.Holiday.DefaultTitle,
			DefaultDescription: conf.Holiday.DefaultDescription,
		})

		if conf.Holiday.ImportOnStart && !flags.noImport {
			// Import failures are reported and never fatal.
			go func() {
				if _, err := importer.Import(ctx); err != nil {
					appLog.Error("startup holiday import failed", err)
				}
			}()
		}

		if err := importer.Schedule(ctx, conf.Holiday.Refresh); err != nil {
			appLog.Error("holiday refresh disabled", err)
		}
	}

	var imp web.Importer
	if importer != nil {
		imp = importer
	}
	srv := web.NewServer(events, imp, inbox)
	if err := srv.ListenAndServe(ctx, conf.Listen); err != nil {
		appLog.Error("HTTP server failed", err, "listen", conf.Listen)
		return err
	}

	appLog.Info("pastelcal exiting")
	return nil
}
