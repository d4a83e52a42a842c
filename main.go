/*
Copyright 2022 The l7mp/stunner team.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l7mp/scorenet/examples/cloudbalancing"
	"github.com/l7mp/scorenet/examples/nqueens"
	"github.com/l7mp/scorenet/internal/buildinfo"
	"github.com/l7mp/scorenet/pkg/score"
	"github.com/l7mp/scorenet/pkg/stream"
	"github.com/l7mp/scorenet/pkg/visualize"
)

var (
	version    = "dev"
	commitHash = "n/a"
	buildDate  = "<unknown>"
)

type globalFlags struct {
	verbosity   int
	configFile  string
	dumpMetrics bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	buildInfo := buildinfo.BuildInfo{Version: version, CommitHash: commitHash, BuildDate: buildDate}

	root := &cobra.Command{
		Use:          "scorenet",
		Short:        "Incremental constraint score calculation",
		Long:         `scorenet runs example planning problems on an incremental constraint stream network.`,
		Version:      buildInfo.String(),
		SilenceUsage: true,
	}
	root.PersistentFlags().IntVarP(&flags.verbosity, "verbose", "v", 0, "Log verbosity (0 is info, higher is more verbose)")
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Session config file (YAML)")
	root.PersistentFlags().BoolVar(&flags.dumpMetrics, "metrics", false, "Print the network metrics after the run")

	root.AddCommand(newNQueensCmd(flags), newCloudBalancingCmd(flags), newGraphCmd(flags), newVersionCmd(buildInfo))
	return root
}

func newVersionCmd(info buildinfo.BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scorenet %s\n", info.String())
		},
	}
}

func newNQueensCmd(flags *globalFlags) *cobra.Command {
	var size, steps int
	var seed int64
	cmd := &cobra.Command{
		Use:   "nqueens",
		Short: "Place n non-attacking queens with a hill climber",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size < 1 {
				return fmt.Errorf("invalid board size %d", size)
			}
			env, err := newEnv(flags)
			if err != nil {
				return err
			}
			defer env.close()

			f, err := stream.NewSessionFactory(nqueens.Constraints, env.cfg, env.options()...)
			if err != nil {
				return err
			}
			board := nqueens.NewBoard(size)
			res, err := nqueens.NewSolver(f, seed, steps, env.log).Solve(cmd.Context(), board)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "score: %s (steps: %d, moves: %d)\n", res.Score, res.Steps, res.Moves)
			fmt.Fprint(out, board.String())
			return env.dump(out)
		},
	}
	cmd.Flags().IntVarP(&size, "size", "n", 8, "Board size")
	cmd.Flags().IntVar(&steps, "steps", 1000, "Maximum number of solver steps")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed")
	return cmd
}

func newCloudBalancingCmd(flags *globalFlags) *cobra.Command {
	var justify bool
	cmd := &cobra.Command{
		Use:   "cloudbalancing <problem.yaml>",
		Short: "Assign processes to computers and print the score breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			problem, err := cloudbalancing.LoadProblem(args[0])
			if err != nil {
				return err
			}
			env, err := newEnv(flags)
			if err != nil {
				return err
			}
			defer env.close()
			if justify {
				env.cfg.ConstraintMatchEnabled = true
			}

			f, err := stream.NewSessionFactory(cloudbalancing.Constraints, env.cfg, env.options()...)
			if err != nil {
				return err
			}
			session, err := f.NewSession()
			if err != nil {
				return err
			}
			for _, fact := range problem.Facts() {
				if err := session.Insert(fact); err != nil {
					return err
				}
			}
			sc, err := cloudbalancing.FirstFitDecreasing(cmd.Context(), session, problem, env.log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "score: %s (feasible: %t)\n", sc, sc.IsFeasible())
			for _, p := range problem.Processes {
				fmt.Fprintf(out, "  %s -> %s\n", p.ID, p.Computer)
			}
			printTotals(out, session)
			if justify {
				for _, m := range session.Justifications() {
					fmt.Fprintf(out, "  %s %v: %s\n", m.Constraint, m.Facts, m.Impact)
				}
			}
			return env.dump(out)
		},
	}
	cmd.Flags().BoolVar(&justify, "justify", false, "Print every constraint match")
	return cmd
}

func newGraphCmd(flags *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:       "graph <nqueens|cloudbalancing>",
		Short:     "Draw the constraint network of an example",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"nqueens", "cloudbalancing"},
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := visualize.NewGenerator(format)
			if err != nil {
				return err
			}
			env, err := newEnv(flags)
			if err != nil {
				return err
			}
			defer env.close()

			var net *stream.Network
			switch args[0] {
			case "nqueens":
				net, err = networkOf(nqueens.Constraints, env)
			case "cloudbalancing":
				net, err = networkOf(cloudbalancing.Constraints, env)
			default:
				return fmt.Errorf("unknown example %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), gen.Generate(visualize.BuildGraph(args[0], net)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "Diagram format: dot or mermaid")
	return cmd
}

func networkOf[S score.Score[S]](provider stream.ConstraintProvider[S], e *env) (*stream.Network, error) {
	f, err := stream.NewSessionFactory(provider, e.cfg, stream.WithLogger(e.log))
	if err != nil {
		return nil, err
	}
	s, err := f.NewSession()
	if err != nil {
		return nil, err
	}
	return s.Network(), nil
}

func printTotals[S score.Score[S]](out io.Writer, s *stream.Session[S]) {
	for _, t := range s.ConstraintMatchTotals() {
		fmt.Fprintf(out, "  %-28s matches: %3d score: %s\n", t.Constraint, t.Count, t.Score)
	}
}

// env holds what every subcommand shares: the logger, the session config and the metric
// registry.
type env struct {
	log      logr.Logger
	zap      *zap.Logger
	cfg      stream.Config
	registry *prometheus.Registry
	dumping  bool
}

func newEnv(flags *globalFlags) (*env, error) {
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-flags.verbosity))
	zc.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	zc.DisableStacktrace = true
	z, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	e := &env{
		log:      zapr.NewLogger(z).WithName("scorenet"),
		zap:      z,
		registry: prometheus.NewRegistry(),
		dumping:  flags.dumpMetrics,
	}
	if flags.configFile != "" {
		if e.cfg, err = stream.LoadConfig(flags.configFile); err != nil {
			return nil, err
		}
	}
	e.log.V(1).Info("session config", "environment-mode", e.cfg.EnvironmentMode,
		"constraint-matches", e.cfg.ConstraintMatchEnabled, "weight-overrides", len(e.cfg.ConstraintWeights))
	return e, nil
}

func (e *env) options() []stream.Option {
	return []stream.Option{stream.WithLogger(e.log), stream.WithRegisterer(e.registry)}
}

func (e *env) close() { _ = e.zap.Sync() }

// dump prints the gathered metrics, one sample per line.
func (e *env) dump(out io.Writer) error {
	if !e.dumping {
		return nil
	}
	families, err := e.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := []string{}
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(out, "%s %g\n", name, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(out, "%s_count %d\n%s_sum %g\n", name, h.GetSampleCount(), name, h.GetSampleSum())
			}
		}
	}
	return nil
}
