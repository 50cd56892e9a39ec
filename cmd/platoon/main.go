package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/platoon/internal/cliconfig"
	"github.com/bft-labs/platoon/pkg/log"
	"github.com/bft-labs/platoon/pkg/platoon"
	"github.com/bft-labs/platoon/plugins/eventfile"
	"github.com/bft-labs/platoon/plugins/prommetrics"
)

const helpDescription = `
Send telemetry events to platoon from the command line.

Highlights:
  - Opens a session, batches events and flushes them on exit.
  - Fetches the feature flags issued for a user.
  - Follows an NDJSON file and streams every appended line as an event.
  - Configure via file ($HOME/.platoon/config.toml), PLATOON_* env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  platoon send level_complete --payload '{"level":3}' --access-token <token>
  platoon flags --user-id player-42
  platoon tail /var/log/game/events.ndjson --metrics-addr :9100
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return platoon.Version
}

// cli holds state shared by all commands.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	custom  []string
	log     zerolog.Logger
}

func main() {
	c := &cli{cfg: cliconfig.DefaultConfig()}
	c.log = c.cfg.Logger()

	root := &cobra.Command{
		Use:           "platoon",
		Short:         "Send telemetry events to platoon",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.platoon/config.toml)")
	flags.StringVar(&c.cfg.AccessToken, "access-token", c.cfg.AccessToken, "access token (X-API-KEY)")
	flags.StringVar(&c.cfg.UserID, "user-id", c.cfg.UserID, "user id (default: random anon#<uuid>)")
	flags.StringVar(&c.cfg.AppVersion, "app-version", c.cfg.AppVersion, "application version reported with the session")
	flags.StringVar(&c.cfg.BaseURL, "base-url", c.cfg.BaseURL, fmt.Sprintf("service URL (defaults to %s; override for local testing)", cliconfig.DefaultBaseURL))
	flags.BoolVar(&c.cfg.Active, "active", c.cfg.Active, "enable sending")
	flags.BoolVar(&c.cfg.EnableFlags, "flags", c.cfg.EnableFlags, "request feature flags with the session")
	flags.BoolVarP(&c.cfg.Quiet, "quiet", "q", c.cfg.Quiet, "only log warnings and errors")
	flags.BoolVarP(&c.cfg.Verbose, "verbose", "v", c.cfg.Verbose, "log debug messages")
	flags.DurationVar(&c.cfg.HeartbeatInterval, "heartbeat", c.cfg.HeartbeatInterval, "interval between background flushes")
	flags.IntVar(&c.cfg.FlushThreshold, "flush-threshold", c.cfg.FlushThreshold, "buffered events that trigger a flush")
	flags.DurationVar(&c.cfg.HTTPTimeout, "timeout", c.cfg.HTTPTimeout, "HTTP timeout")
	flags.DurationVar(&c.cfg.CloseTimeout, "close-timeout", c.cfg.CloseTimeout, "how long to wait for in-flight requests on exit")
	flags.StringArrayVar(&c.custom, "custom", nil, "custom session field key=value (repeatable)")

	root.AddCommand(c.sendCommand(), c.flagsCommand(), c.tailCommand())

	if err := root.Execute(); err != nil {
		c.log.Error().Err(err).Msg("platoon")
		os.Exit(1)
	}
}

// load applies file, env and flag configuration in that order of increasing
// precedence, then validates.
func (c *cli) load(cmd *cobra.Command) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}

	ec, err := cliconfig.LoadEnvConfig(nil)
	if err != nil {
		return err
	}
	if err := cliconfig.ApplyEnvConfig(&c.cfg, ec, changed); err != nil {
		return err
	}

	custom, err := cliconfig.ParseCustom(c.custom)
	if err != nil {
		return err
	}
	for k, v := range custom {
		if c.cfg.Custom == nil {
			c.cfg.Custom = make(map[string]any)
		}
		c.cfg.Custom[k] = v
	}

	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.log = c.cfg.Logger()

	logCfg := c.cfg
	if len(logCfg.AccessToken) > 0 {
		logCfg.AccessToken = "*****"
	}
	c.log.Debug().Interface("config", logCfg).Msg("configuration")
	return nil
}

// newClient builds a library client from the CLI configuration.
func (c *cli) newClient(opts ...platoon.Option) (*platoon.Client, error) {
	libCfg := platoon.Config{
		AccessToken:       c.cfg.AccessToken,
		UserID:            c.cfg.UserID,
		BaseURL:           c.cfg.BaseURL,
		AppVersion:        c.cfg.AppVersion,
		Disabled:          !c.cfg.Active,
		HeartbeatInterval: c.cfg.HeartbeatInterval,
		FlushThreshold:    c.cfg.FlushThreshold,
		HTTPTimeout:       c.cfg.HTTPTimeout,
		CloseTimeout:      c.cfg.CloseTimeout,
		Quiet:             c.cfg.Quiet,
		Verbose:           c.cfg.Verbose,
		CustomSessionData: c.cfg.Custom,
	}

	opts = append([]platoon.Option{platoon.WithLogger(log.NewZerologAdapterWithLogger(c.log))}, opts...)
	client, err := platoon.New(libCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// startSession opens the session and waits for the handshake.
func startSession(client *platoon.Client, timeout time.Duration) error {
	if !client.IsActive() {
		return errors.New("sending is disabled")
	}

	ready := make(chan struct{})
	client.StartSession(func() { close(ready) })

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ready:
			return nil
		case <-deadline.C:
			return fmt.Errorf("session not ready after %s", timeout)
		case <-poll.C:
			// A transport failure disables the client and the callback never runs.
			if !client.IsActive() {
				return errors.New("session handshake failed, sending disabled")
			}
		}
	}
}

func closeClient(client *platoon.Client, logger zerolog.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn().Err(err).Msg("close")
	}
}

func (c *cli) sendCommand() *cobra.Command {
	var payload string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "send EVENT...",
		Short: "Open a session, send events and close it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}

			var data map[string]any
			if payload != "" {
				if err := json.Unmarshal([]byte(payload), &data); err != nil {
					return fmt.Errorf("parse payload: %w", err)
				}
			}

			client, err := c.newClient()
			if err != nil {
				return err
			}
			defer closeClient(client, c.log)

			if c.cfg.EnableFlags {
				client.EnableFlagRetrieval()
			}
			if err := startSession(client, wait); err != nil {
				return err
			}
			for _, name := range args {
				client.AddEvent(name, data)
			}

			c.log.Info().
				Str("session_id", client.SessionID()).
				Int("events", len(args)).
				Msg("events queued")
			return nil
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "JSON object attached to every event")
	cmd.Flags().DurationVar(&wait, "wait", 10*time.Second, "how long to wait for the session")
	return cmd
}

func (c *cli) flagsCommand() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Print the feature flags issued for the user as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}

			client, err := c.newClient()
			if err != nil {
				return err
			}
			defer closeClient(client, c.log)

			client.EnableFlagRetrieval()
			if err := startSession(client, wait); err != nil {
				return err
			}

			out := make(map[string]any)
			for _, name := range client.Flags() {
				v, _ := client.FlagPayload(name)
				out[name] = v
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 10*time.Second, "how long to wait for the session")
	return cmd
}

func (c *cli) tailCommand() *cobra.Command {
	var fromStart bool
	var metricsAddr string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "tail FILE",
		Short: "Stream lines appended to an NDJSON file as events until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}

			opts := []platoon.Option{
				eventfile.WithConfig(eventfile.Config{Path: args[0], FromStart: fromStart}),
			}

			var srv *http.Server
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector())
				recorder, err := prommetrics.NewRecorder(reg)
				if err != nil {
					return fmt.Errorf("register metrics: %w", err)
				}
				opts = append(opts, platoon.WithEventHandler(recorder))

				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						c.log.Error().Err(err).Msg("metrics server")
					}
				}()
				c.log.Info().Str("addr", metricsAddr).Msg("serving metrics")
			}

			client, err := c.newClient(opts...)
			if err != nil {
				return err
			}
			if c.cfg.EnableFlags {
				client.EnableFlagRetrieval()
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			if err := startSession(client, wait); err != nil {
				closeClient(client, c.log)
				return err
			}
			c.log.Info().Str("file", args[0]).Str("session_id", client.SessionID()).Msg("tailing")

			<-sigCh
			c.log.Info().Msg("received signal, stopping...")

			closeClient(client, c.log)

			if srv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStart, "from-start", false, "also send lines already in the file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&wait, "wait", 10*time.Second, "how long to wait for the session")
	return cmd
}
