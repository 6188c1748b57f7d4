package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/pacer"
)

const statsRequestTimeout = 5 * time.Second

var statsFlags = struct {
	address string
	channel string
	output  string
	reset   bool
}{}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pacing statistics from a running daemon",
	Long: `Query the operational server of a running Callisto daemon and display
per-channel pacing statistics.

The daemon address comes from the config file unless --address is given.

Examples:
  # All channels, human readable
  callisto stats

  # One channel as JSON
  callisto stats --channel public --output json

  # A daemon on a non-default address
  callisto stats --address 10.0.3.7:9180

  # Zero the counters after reading them
  callisto stats --reset`,
	RunE: showStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsFlags.address, "address", "", "ops server address (default from config)")
	statsCmd.Flags().StringVar(&statsFlags.channel, "channel", "", "only this channel (public or private)")
	statsCmd.Flags().StringVarP(&statsFlags.output, "output", "o", "text", "output format (text or json)")
	statsCmd.Flags().BoolVar(&statsFlags.reset, "reset", false, "reset the counters after displaying them")
}

func showStats(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(statsFlags.output)
	if err != nil {
		return err
	}

	address := statsFlags.address
	if address == "" {
		address = config.DefaultServerListenAddress
		if cfg, err := config.LoadWithEnvOverrides(cfgFile); err == nil {
			address = cfg.Server.ListenAddress
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsRequestTimeout)
	defer cancel()

	if statsFlags.channel != "" {
		var snap pacer.ChannelSnapshot
		url := fmt.Sprintf("http://%s/stats/%s", address, statsFlags.channel)
		if err := fetchJSON(ctx, url, &snap); err != nil {
			return err
		}
		if err := renderChannelStats(os.Stdout, format, snap); err != nil {
			return err
		}
	} else {
		var snap pacer.Snapshot
		url := fmt.Sprintf("http://%s/stats", address)
		if err := fetchJSON(ctx, url, &snap); err != nil {
			return err
		}
		if err := renderStats(os.Stdout, format, snap); err != nil {
			return err
		}
	}

	if statsFlags.reset {
		if err := resetStats(ctx, address); err != nil {
			return err
		}
		fmt.Println("\n✓ Counters reset")
	}
	return nil
}

func fetchJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cli.NewCommandError("stats", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return cli.NewCommandError("stats", fmt.Errorf("cannot reach the daemon, is it running? %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && statsFlags.channel != "" {
		return cli.NewConfigError("channel", fmt.Sprintf("unknown channel %q", statsFlags.channel))
	}
	if resp.StatusCode != http.StatusOK {
		return cli.NewCommandError("stats", fmt.Errorf("daemon returned %s", resp.Status))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return cli.NewCommandError("stats", fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func resetStats(ctx context.Context, address string) error {
	url := fmt.Sprintf("http://%s/stats/reset", address)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return cli.NewCommandError("stats", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return cli.NewCommandError("stats", fmt.Errorf("cannot reach the daemon, is it running? %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cli.NewCommandError("stats", fmt.Errorf("reset failed, daemon returned %s", resp.Status))
	}
	return nil
}

func renderStats(w io.Writer, format cli.OutputFormat, snap pacer.Snapshot) error {
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(w, snap)
	}

	fmt.Fprintf(w, "Pacing statistics as of %s\n", snap.Taken.Format(time.RFC3339))
	for _, ch := range []pacer.Channel{pacer.ChannelPublic, pacer.ChannelPrivate} {
		if s, ok := snap.Channels[ch]; ok {
			writeChannelText(w, s)
		}
	}
	return nil
}

func renderChannelStats(w io.Writer, format cli.OutputFormat, snap pacer.ChannelSnapshot) error {
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(w, snap)
	}
	writeChannelText(w, snap)
	return nil
}

func writeChannelText(w io.Writer, s pacer.ChannelSnapshot) {
	fmt.Fprintf(w, "\n%s\n", s.Channel)
	fmt.Fprintf(w, "  requests:    %d total, %d throttled, %.1f%% utilization\n",
		s.TotalRequests, s.BlockedRequests, s.UtilizationPct)
	fmt.Fprintf(w, "  waits:       avg %.1fms, max %.1fms, total %.0fms\n",
		s.AvgWaitTimeMs, s.MaxWaitTimeMs, s.TotalWaitTimeMs)
	fmt.Fprintf(w, "  bucket:      %.1f of %.0f tokens, refill %g/s\n",
		s.CurrentTokens, s.Capacity, s.RefillRate)
	fmt.Fprintf(w, "  violations:  %d in the last minute\n", s.RecentViolations)
}
