package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/telemetrytools/pihole-influx/internal/influx"
	"github.com/telemetrytools/pihole-influx/internal/monitor"
	"github.com/telemetrytools/pihole-influx/internal/pihole"
	"github.com/telemetrytools/pihole-influx/internal/statusapi"
)

// run wires configuration into the monitor and drives it until a
// termination signal arrives.
func run(cfg appConfig) error {
	configureRuntimeLogger()

	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	timeout := pihole.RequestTimeout(interval)

	instances, err := pihole.BuildInstances(
		splitList(cfg.PiholeAlias),
		splitList(cfg.PiholeAddress),
		splitList(cfg.PiholePassword),
	)
	if err != nil {
		return err
	}

	pollers := make([]monitor.Poller, 0, len(instances))
	for _, inst := range instances {
		pollers = append(pollers, pihole.NewClient(inst, timeout))
	}

	sink := influx.NewSink(influx.Config{
		Address:      cfg.InfluxAddress,
		Org:          cfg.InfluxOrg,
		Token:        cfg.InfluxToken,
		Bucket:       cfg.InfluxBucket,
		VerifyTLS:    cfg.InfluxVerifySSL,
		CreateBucket: cfg.InfluxCreateBucket,
	})
	defer sink.Close()

	mon := monitor.New(monitor.Config{
		Interval:   interval,
		TopItems:   cfg.NumTopItems,
		TopClients: cfg.NumTopClients,
	}, sink, pollers)

	if cfg.StatusEnabled {
		api := statusapi.NewServer(cfg.StatusAddr, mon)
		if err := api.Start(); err != nil {
			log.Printf("Warning: failed to start status API: %v", err)
		} else {
			defer api.Stop()
		}
	}

	printStartupBanner(cfg, instances)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return mon.Run(gctx)
	})

	// Termination signals stop the scheduler and exit cleanly; anything
	// else handled here is treated as an abnormal exit.
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			cancel()
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				log.Printf("Stopping...")
				return nil
			}
			return fmt.Errorf("unexpected signal: %s", sig)
		case <-gctx.Done():
			return nil
		}
	})

	return g.Wait()
}

func configureRuntimeLogger() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetOutput(os.Stderr)
}

// splitList splits a comma-separated config value, trimming whitespace.
// An empty value yields no entries.
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func printStartupBanner(cfg appConfig, instances []pihole.Instance) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	token := "(none)"
	if cfg.InfluxToken != "" {
		token = "******"
	}

	var lines []string
	lines = append(lines, "")
	lines = append(lines, bold.Render("  pihole-influx ")+dim.Render("v"+version))
	lines = append(lines, "")

	lines = append(lines, bold.Render("  Pi-hole"))
	for _, inst := range instances {
		mark := dot
		if inst.Password != "" {
			mark = check
		}
		lines = append(lines, fmt.Sprintf("  %s  %-12s %s", mark, inst.Alias, cyan.Render(inst.Address)))
	}
	lines = append(lines, fmt.Sprintf("  %s  %-12s %s", check, "interval", cyan.Render(fmt.Sprintf("%ds", cfg.IntervalSeconds))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("  InfluxDB"))
	lines = append(lines, fmt.Sprintf("  %s  %-12s %s", check, "address", cyan.Render(cfg.InfluxAddress)))
	lines = append(lines, fmt.Sprintf("  %s  %-12s %s", check, "org", dim.Render(cfg.InfluxOrg)))
	lines = append(lines, fmt.Sprintf("  %s  %-12s %s", check, "bucket", dim.Render(cfg.InfluxBucket)))
	lines = append(lines, fmt.Sprintf("  %s  %-12s %s", check, "token", dim.Render(token)))
	lines = append(lines, fmt.Sprintf("  %s  %-12s %s", check, "verify TLS", dim.Render(fmt.Sprintf("%t", cfg.InfluxVerifySSL))))
	lines = append(lines, "")

	if cfg.StatusEnabled {
		lines = append(lines, fmt.Sprintf("  %s  %-12s %s", check, "status API", cyan.Render(cfg.StatusAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("  %s  %-12s %s", dot, "status API", dim.Render("disabled")))
	}
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("  %s  %-12s %s", check, "config file", dim.Render(cfg.ConfigPath)))
	}
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}
