package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/yashs662/holodeck/pkg/client"
)

type rootOptions struct {
	Address  string
	BasePath string
	Timeout  time.Duration
	NoColor  bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "holodeck",
		Short:        "Command-line client for the holodeck simulation API",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.NoColor {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Address, "address", "a", "127.0.0.1:3030", "server address")
	cmd.PersistentFlags().StringVar(&opts.BasePath, "base-path", client.DefaultBasePath, "API base path")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newListCommand(opts),
		newGetCommand(opts),
		newCreateCommand(opts),
		newUpdateCommand(opts),
		newDeleteCommand(opts),
		newBenchCommand(opts),
		newShellCommand(opts),
	)
	return cmd
}

func (o *rootOptions) client() (*client.Client, error) {
	return client.NewClient(o.Address, client.WithBasePath(o.BasePath), client.WithTimeout(o.Timeout))
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid simulation id %q", raw)
	}
	return id, nil
}

// printResponse colors a server message by outcome and turns a rejected
// request into a command error.
func printResponse(w io.Writer, resp client.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.OK() {
		color.New(color.FgRed).Fprintln(w, resp.Message)
		return fmt.Errorf("request rejected with status %d", resp.Status)
	}
	color.New(color.FgGreen).Fprintln(w, resp.Message)
	return nil
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			sims, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			client.RenderSimulations(cmd.OutOrStdout(), sims)
			return nil
		},
	}
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			sims, err := c.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			client.RenderSimulations(cmd.OutOrStdout(), sims)
			return nil
		},
	}
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <id> <name>",
		Short: "Create a simulation unless the id is taken",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			sim := client.Simulation{ID: id, Name: strings.Join(args[1:], " ")}
			resp, err := c.Create(cmd.Context(), sim)
			return printResponse(cmd.OutOrStdout(), resp, err)
		},
	}
}

func newUpdateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <name>",
		Short: "Rename a simulation, creating it if absent",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.Update(cmd.Context(), id, strings.Join(args[1:], " "))
			return printResponse(cmd.OutOrStdout(), resp, err)
		},
	}
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.Delete(cmd.Context(), id)
			return printResponse(cmd.OutOrStdout(), resp, err)
		},
	}
}

func newBenchCommand(opts *rootOptions) *cobra.Command {
	var bench client.BenchmarkOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the server with concurrent create/get/update/delete cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			report, err := c.Benchmark(cmd.Context(), bench)
			if report != nil {
				client.RenderBenchmark(cmd.OutOrStdout(), report, bench.Clients, bench.Iterations)
			}
			if err != nil {
				return fmt.Errorf("benchmark failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&bench.Clients, "clients", 10, "number of concurrent clients")
	cmd.Flags().IntVar(&bench.Iterations, "iterations", 1000, "cycles per client")
	cmd.Flags().Uint64Var(&bench.StartID, "start-id", client.DefaultBenchmarkStartID, "first simulation id used by the benchmark")
	return cmd
}

func newShellCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			return interactiveMode(cmd.Context(), c, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func interactiveMode(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	registry := client.NewCommandRegistry()
	reader := bufio.NewReader(in)
	fmt.Fprintf(out, "Connected to %s. Type 'help' for commands, 'exit' to quit.\n", c.Address())
	for {
		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		if err == io.EOF && line == "" {
			return nil
		}
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read input: %w", err)
		}

		resp := registry.Execute(ctx, c, strings.TrimSpace(line))
		switch {
		case resp.Response == "":
		case resp.Failed:
			color.New(color.FgRed).Fprintln(out, resp.Response)
		default:
			color.New(color.FgGreen).Fprintln(out, resp.Response)
		}
		if resp.ControlFlow == client.Exit || err == io.EOF {
			return nil
		}
	}
}
