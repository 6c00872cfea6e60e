package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"bookcal/internal/avail"
	"bookcal/internal/caldav"
	"bookcal/internal/config"
	appLog "bookcal/internal/log"
	"bookcal/internal/mail"
	"bookcal/internal/slots"
	"bookcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	date       string
	debug      bool
}

func main() {
	appLog.Info("bookcal starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"caldav_url", conf.CalDAV.URL,
		"refresh", conf.RefreshCron,
		"working_hours", conf.Working,
		"fail_open", conf.FailOpen,
		"once", flags.once,
	)

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("invalid timezone in config, falling back to UTC", err, "timezone", conf.Timezone)
		loc = time.UTC
	}

	client, err := caldav.NewClient(conf.CalDAV.URL, conf.CalDAV.Username, conf.CalDAV.Password, loc)
	if err != nil {
		if errors.Is(err, caldav.ErrNoCredentials) {
			appLog.Error("CalDAV credentials missing; set CALDAV_USERNAME and CALDAV_PASSWORD", err)
		} else {
			appLog.Error("failed to create CalDAV client", err)
		}
		os.Exit(1)
	}

	window := slots.Window{
		StartHour: conf.Working.StartHour,
		EndHour:   conf.Working.EndHour,
		SlotHours: conf.Working.SlotHours,
	}
	svc := avail.New(client, window, conf.FailOpen)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		runOnce(ctx, svc, flags.date)
		return
	}

	sender := mail.NewSMTPSender(conf.SMTP.Host, conf.SMTP.Port, conf.SMTP.From)
	srv := web.NewServer(conf, svc, sender)

	// Periodic refresh keeps today's and tomorrow's slots warm so widget
	// requests rarely wait on the remote calendar.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(conf.RefreshCron, func() {
		srv.WarmCache(ctx, 2)
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	httpServer := &http.Server{
		Addr:    conf.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
	}

	appLog.Info("bookcal exiting")
}

// runOnce fetches availability for a single day and prints it as JSON.
// Useful for checking CalDAV connectivity and slot output from a shell.
func runOnce(ctx context.Context, svc *avail.Service, date string) {
	day := time.Now().UTC()
	if date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", date, time.UTC)
		if err != nil {
			appLog.Error("invalid -date, expected YYYY-MM-DD", err, "date", date)
			os.Exit(1)
		}
		day = parsed
	}

	slotList, err := svc.Slots(ctx, day)
	if err != nil {
		appLog.Error("availability fetch failed", err, "date", day.Format("2006-01-02"))
		os.Exit(1)
	}

	out, err := json.MarshalIndent(slotList, "", "  ")
	if err != nil {
		appLog.Error("failed to encode slots", err)
		os.Exit(1)
	}
	os.Stdout.Write(append(out, '\n'))
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/bookcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Fetch availability once, print JSON and exit")
	flag.StringVar(&cfg.date, "date", "", "Day for -once in YYYY-MM-DD form (default: today)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
