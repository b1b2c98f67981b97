package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	apiFlags := &APIFlags{}
	stopFlags := &StopFlags{}
	consoleFlags := &ConsoleFlags{}

	cmds := command{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createServeCommand(globalFlags),
		createListCommand(cmds, apiFlags),
		createStatusCommand(cmds, apiFlags),
		createStartCommand(cmds, apiFlags),
		createStopCommand(cmds, stopFlags),
		createRestartCommand(cmds, apiFlags),
		createCommandCommand(cmds, apiFlags),
		createConsoleCommand(cmds, consoleFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "craftd",
		Short: "Minecraft server supervision daemon",
		Long: `Craftd supervises Minecraft server processes: launch, console
parsing, lifecycle tracking, bounded auto-restart and graceful shutdown.

Examples:
  craftd serve --config=craftd.toml       # Start daemon
  craftd list                             # List servers
  craftd start survival                   # Start a server
  craftd cmd survival "say hello"         # Send a console command
  craftd status survival --api-url=http://remote:8970  # Remote status`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func addAPIFlags(cmd *cobra.Command, f *APIFlags) {
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "", "daemon URL (default http://127.0.0.1:8970)")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 30*time.Second, "request timeout")
}

func createListCommand(cmds command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all servers",
		Long: `List every registered server with its status, player count,
version and uptime.

Examples:
  craftd list
  craftd list --api-url=http://remote:8970`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.List(*f)
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createStatusCommand(cmds command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <server-id>",
		Short: "Show server status",
		Long: `Show the full status snapshot of one server as JSON.

Examples:
  craftd status survival
  craftd status survival --api-url=http://remote:8970`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Status(args[0], *f)
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createStartCommand(cmds command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <server-id>",
		Short: "Start a server",
		Long: `Start a registered server. The server must be stopped or crashed.

Examples:
  craftd start survival`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Start(args[0], *f)
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createStopCommand(cmds command, f *StopFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <server-id>",
		Short: "Stop a server",
		Long: `Stop a server gracefully via its console, escalating to a kill
after the configured stop timeout.

Examples:
  craftd stop survival
  craftd stop survival --force    # Kill immediately`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Stop(args[0], *f)
		},
	}
	cmd.Flags().BoolVar(&f.Force, "force", false, "kill the process immediately")
	addAPIFlags(cmd, &f.APIFlags)
	return cmd
}

func createRestartCommand(cmds command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart <server-id>",
		Short: "Restart a server",
		Long: `Stop a server gracefully, wait for it to settle, then start it.

Examples:
  craftd restart survival`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Restart(args[0], *f)
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createCommandCommand(cmds command, f *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cmd <server-id> <command>",
		Short: "Send a console command",
		Long: `Send a command to a running server's console.

Examples:
  craftd cmd survival "say restarting in 5 minutes"
  craftd cmd survival list`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Command(args[0], args[1], *f)
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createConsoleCommand(cmds command, f *ConsoleFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console <server-id>",
		Short: "Show recent console output",
		Long: `Print the most recent console lines of a server.

Examples:
  craftd console survival
  craftd console survival --lines=200`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Console(args[0], *f)
		},
	}
	cmd.Flags().IntVar(&f.Lines, "lines", 100, "number of lines to show")
	addAPIFlags(cmd, &f.APIFlags)
	return cmd
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the craftd daemon",
		Long: `Start the craftd daemon. All servers are loaded from the TOML
config file.

Examples:
  craftd serve --config=craftd.toml
  craftd serve craftd.toml
  craftd serve craftd.toml --daemonize`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			return runServeCommand(serveFlags, args)
		},
	}
	cmd.Flags().BoolVar(&serveFlags.Daemonize, "daemonize", false, "run as daemon in background")
	cmd.Flags().StringVar(&serveFlags.PidFile, "pidfile", "", "write daemon PID to file")
	cmd.Flags().StringVar(&serveFlags.LogFile, "logfile", "", "redirect daemon logs to file")
	return cmd
}
