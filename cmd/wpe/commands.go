package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/loykin/wpe"
	"github.com/loykin/wpe/internal/client"
	"github.com/loykin/wpe/internal/config"
	"github.com/loykin/wpe/internal/tui"
)

// buildRoot creates the root command and wires up subcommands.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	statusFlags := &ClientFlags{}
	stopFlags := &ClientFlags{}
	tuiFlags := &ClientFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createApplyCommand(globalFlags),
		createServeCommand(globalFlags),
		createStatusCommand(globalFlags, statusFlags),
		createStopCommand(globalFlags, stopFlags),
		createTuiCommand(globalFlags, tuiFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "wpe",
		Short: "Per-monitor wallpaper process supervisor",
		Long: `wpe launches and supervises one mpvpaper renderer per enabled
display, driven by ~/.config/wpe/config.toml.

Examples:
  wpe apply                 # launch wallpapers from config and exit
  wpe serve                 # stay up: HTTP API, crash detection, metrics
  wpe status                # ask a running daemon what is up
  wpe tui                   # interactive front end over the daemon`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to config.toml (default ~/.config/wpe/config.toml)")
	return root
}

func createApplyCommand(global *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Launch configured wallpapers and exit",
		Long: `Load the config file (seeding a default one on first run), start a
renderer for every enabled entry, and exit. The renderers keep running
detached; use a serve daemon when you want crash detection and live
control.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(global)
		},
	}
}

func runApply(global *GlobalFlags) error {
	path, err := resolveConfigPath(global)
	if err != nil {
		return err
	}
	fc, created, err := config.Seed(path, enumerateMonitorIDs())
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Created default config at %s.\n", path)
		fmt.Println("Edit this file to choose wallpapers, then rerun `wpe apply`.")
		return nil
	}

	col, entryErrs := config.Validate(fc.Wallpapers)
	reportEntryErrors(entryErrs)
	if col.Len() == 0 && len(entryErrs) > 0 {
		return &exitError{code: 1, msg: "no usable wallpaper entries in " + path}
	}

	enabled := 0
	for _, w := range col.Wallpapers() {
		if w.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		fmt.Printf("No enabled wallpaper entries in %s have a configured path.\n", path)
		fmt.Println("Set `enabled = true` and provide a valid path, then rerun `wpe apply`.")
		return nil
	}

	eng := wpe.NewWithOptions(wpe.Options{Log: fc.Log})
	defer eng.Close()

	report := eng.Apply(col)
	printReport(report)

	started := 0
	for _, r := range report.Results {
		if r.Outcome == wpe.OutcomeStarted || r.Outcome == wpe.OutcomeRestarted {
			started++
		}
	}
	if started == 0 && len(report.Failed()) > 0 {
		return &exitError{code: 2, msg: "every renderer launch failed; is mpvpaper installed?"}
	}

	fmt.Printf("Started %d mpvpaper instance(s). Stop them with `pkill mpvpaper` or run `wpe serve`.\n", started)
	return nil
}

func createStatusCommand(global *GlobalFlags, flags *ClientFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-monitor renderer state from a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := daemonClient(global, flags)
			if err != nil {
				return err
			}
			resp, err := c.Status()
			if err != nil {
				return statusFallback(global, err)
			}
			printSnapshot(resp.Monitors)
			return nil
		},
	}
	addClientFlags(cmd, flags)
	return cmd
}

func createStopCommand(global *GlobalFlags, flags *ClientFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop every renderer tracked by a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := daemonClient(global, flags)
			if err != nil {
				return err
			}
			resp, err := c.StopAll()
			if err != nil {
				return err
			}
			if len(resp.Failures) > 0 {
				for _, f := range resp.Failures {
					_, _ = fmt.Fprintf(os.Stderr, "stop %s: %s\n", f.Monitor, f.Reason)
				}
				return &exitError{code: 1, msg: fmt.Sprintf("%d renderer(s) did not stop cleanly", len(resp.Failures))}
			}
			fmt.Println("All renderers stopped.")
			return nil
		},
	}
	addClientFlags(cmd, flags)
	return cmd
}

func createTuiCommand(global *GlobalFlags, flags *ClientFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive front end over a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := daemonClient(global, flags)
			if err != nil {
				return err
			}
			return tui.Run(c)
		},
	}
	addClientFlags(cmd, flags)
	return cmd
}

func addClientFlags(cmd *cobra.Command, flags *ClientFlags) {
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (default derived from [server].listen in config)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", client.DefaultTimeout, "request timeout")
}

// daemonClient resolves the daemon address from flags or the config file.
func daemonClient(global *GlobalFlags, flags *ClientFlags) (*client.Client, error) {
	base := flags.APIUrl
	if base == "" {
		path, err := resolveConfigPath(global)
		if err != nil {
			return nil, err
		}
		listen := config.DefaultListen
		if fc, err := config.Load(path); err == nil && fc.Server.Listen != "" {
			listen = fc.Server.Listen
		}
		base = "http://" + listen
	}
	return client.New(base, flags.APITimeout), nil
}

// statusFallback lists configured entries when no daemon is reachable.
func statusFallback(global *GlobalFlags, daemonErr error) error {
	_, _ = fmt.Fprintf(os.Stderr, "%v\n", daemonErr)
	path, err := resolveConfigPath(global)
	if err != nil {
		return err
	}
	fc, err := config.Load(path)
	if err != nil {
		return err
	}
	fmt.Printf("Configured entries in %s (no daemon running):\n", path)
	for _, e := range fc.Wallpapers {
		state := "disabled"
		if e.Enabled {
			state = "enabled"
		}
		fmt.Printf("  %-12s %-8s %s\n", e.Monitor, state, e.Path)
	}
	return nil
}

func reportEntryErrors(errs []config.EntryError) {
	for _, e := range errs {
		_, _ = fmt.Fprintf(os.Stderr, "config: %v\n", e)
	}
}

func printReport(report wpe.ApplyReport) {
	for _, r := range report.Results {
		if r.Outcome == wpe.OutcomeFailed {
			_, _ = fmt.Fprintf(os.Stderr, "  %-12s %s: %s\n", r.Monitor, r.Outcome, r.Reason)
			continue
		}
		fmt.Printf("  %-12s %s\n", r.Monitor, r.Outcome)
	}
}

func printSnapshot(monitors map[string]wpe.RunState) {
	ids := make([]string, 0, len(monitors))
	for id := range monitors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		st := monitors[id]
		if st.Running {
			fmt.Printf("  %-12s running  pid=%d  since=%s\n", id, st.PID, st.SpawnedAt.Format("15:04:05"))
		} else {
			fmt.Printf("  %-12s stopped\n", id)
		}
	}
	if len(ids) == 0 {
		fmt.Println("  (no monitors tracked)")
	}
}
