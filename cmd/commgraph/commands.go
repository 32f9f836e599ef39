package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/commgraph/commgraph/internal/adapters/transcript"
	"github.com/commgraph/commgraph/internal/config"
	"github.com/commgraph/commgraph/internal/core/topology"
	"github.com/commgraph/commgraph/pkg/commgraph"
)

// selectionFlags are shared by every command that compiles a topology
type selectionFlags struct {
	category string
	taskType string
	seed     uint64
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "", "task category to resolve participants for")
	cmd.Flags().StringVar(&f.taskType, "task-type", "", "task type within the category")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "seed for random anchor selection (0 picks a random anchor)")
}

func (f *selectionFlags) selection() config.Selection {
	return config.Selection{Category: f.category, TaskType: f.taskType}
}

func (f *selectionFlags) rand() *rand.Rand {
	if f.seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(f.seed, f.seed))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "commgraph",
		Short: "Graph-based multi-agent turn protocol engine",
		Long: `commgraph compiles topology files into interaction graphs and plays
episodes over them.

Example:
  commgraph validate configs/star_topology.yaml
  commgraph graph configs/star_topology.yaml --format dot
  commgraph replay configs/star_topology.yaml configs/transcripts/star_replay.yaml`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newVersionCmd(), newValidateCmd(), newGraphCmd(), newReplayCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "commgraph %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		},
	}
}

func newValidateCmd() *cobra.Command {
	var sel selectionFlags
	cmd := &cobra.Command{
		Use:   "validate <topology-file>",
		Short: "Validate a topology file and compile it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := compile(args[0], &sel)
			if err != nil {
				return err
			}
			players := desc.Graph.Players()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s topology, %d participants, anchor %s\n",
				desc.Type, len(players), desc.Graph.Anchor)
			return nil
		},
	}
	sel.register(cmd)
	return cmd
}

func newGraphCmd() *cobra.Command {
	var (
		sel    selectionFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "graph <topology-file>",
		Short: "Print the compiled interaction graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := compile(args[0], &sel)
			if err != nil {
				return err
			}
			return writeGraph(cmd.OutOrStdout(), desc, format)
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or dot")
	return cmd
}

func writeGraph(w io.Writer, desc *topology.Description, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	case "dot":
		return desc.Graph.WriteDOT(w, string(desc.Type))
	}
	return fmt.Errorf("unknown graph format %q, use json or dot", format)
}

func newReplayCmd() *cobra.Command {
	var (
		sel     selectionFlags
		envFile string
	)
	cmd := &cobra.Command{
		Use:   "replay <topology-file> <transcript>",
		Short: "Play an episode from a recorded transcript",
		Long: `Replay plays an episode whose agent replies and environment observations
come from a transcript file. Runtime settings are read from COMMGRAPH_*
environment variables, after loading the optional dotenv file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings(envFile)
			if err != nil {
				return err
			}
			tr, err := transcript.Load(args[1])
			if err != nil {
				return err
			}
			selection := sel.selection()
			if selection == (config.Selection{}) {
				selection = config.Selection{Category: tr.Category, TaskType: tr.TaskType}
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: settings.SlogLevel()}))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, err := commgraph.NewSession(ctx, commgraph.Options{
				ConfigPath:  args[0],
				Selection:   selection,
				Settings:    &settings,
				Goal:        tr.Goal,
				Environment: transcript.NewEnvironment(tr.Observations),
				Rand:        sel.rand(),
				Logger:      log,
			})
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.Run(ctx, transcript.NewAgent(tr.Turns))
			if res != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(res); encErr != nil && err == nil {
					err = encErr
				}
			}
			return err
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file with COMMGRAPH_* settings, skipped when missing")
	return cmd
}

func compile(path string, sel *selectionFlags) (*topology.Description, error) {
	f, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return f.Compile(sel.selection(), sel.rand())
}
