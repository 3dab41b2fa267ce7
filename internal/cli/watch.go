package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drblury/resourcewatch/internal/cdp"
	runtimepkg "github.com/drblury/resourcewatch/internal/runtime"
	loggingpkg "github.com/drblury/resourcewatch/internal/runtime/logging"
	"github.com/drblury/resourcewatch/internal/runtime/target"
)

var (
	watchURL      string
	watchPage     string
	watchHeadless bool
	watchMetrics  bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchURL, "url", "u", "", "DevTools websocket URL of a running browser (launches one when empty)")
	watchCmd.Flags().StringVarP(&watchPage, "page", "p", "", "Watch the first page whose URL contains this value")
	watchCmd.Flags().BoolVar(&watchHeadless, "headless", true, "Run a launched browser headless")
	watchCmd.Flags().BoolVar(&watchMetrics, "metrics", false, "Expose Prometheus metrics on the configured port")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch console messages of a browser page",
	Long:  "Attaches to a page over the Chrome DevTools Protocol, publishes its console history\nand then every live message through the configured transport until interrupted.",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchURL != "" {
		cfg.CDPControlURL = watchURL
	}
	if watchPage != "" {
		cfg.CDPPageMatch = watchPage
	}
	if watchMetrics {
		cfg.MetricsEnabled = true
	}

	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := runtimepkg.NewService(cfg, log, ctx, runtimepkg.ServiceDependencies{})
	if err != nil {
		return err
	}

	hub := svc.NewHub()
	session, err := cdp.Connect(ctx, cdp.Config{
		ControlURL: cfg.CDPControlURL,
		PageMatch:  cfg.CDPPageMatch,
		Headless:   watchHeadless,
	}, hub, log)
	if err != nil {
		_ = svc.Close()
		return err
	}
	defer func() { _ = session.Close() }()

	session.OnNavigate(func(h *target.Handle) {
		if err := svc.WatchTarget(ctx, h, hub); err != nil {
			log.Error("Failed to re-watch navigated page", err, loggingpkg.LogFields{"target_id": h.ActorID()})
		}
	})

	if err := svc.WatchTarget(ctx, session.Target(), hub); err != nil {
		_ = svc.Close()
		return fmt.Errorf("watch page: %w", err)
	}

	return svc.Start(ctx)
}
