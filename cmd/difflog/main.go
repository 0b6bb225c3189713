// Command difflog learns logic programs from examples by gradient descent
// and verifies the extracted programs discretely.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"difflog/internal/config"
	"difflog/internal/ilp"
	"difflog/internal/infer"
	"difflog/internal/logic"
	"difflog/internal/problems"
	"difflog/internal/store"
	"difflog/internal/train"
	"difflog/internal/verify"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Training flags
	steps     int
	lr        float64
	seed      int64
	batch     float64
	threshold float64
	stopLoss  float64
	dbPath    string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "difflog",
	Short: "difflog - differentiable inductive logic programming",
	Long: `difflog learns Datalog-style logic programs from positive and negative
examples. Candidate clauses are enumerated from rule templates, a softmax
over each template slot selects among them, and T steps of fuzzy forward
chaining make the whole pipeline differentiable. After training, the argmax
clauses are extracted and checked discretely.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var trainCmd = &cobra.Command{
	Use:   "train [problem]",
	Short: "Train clause weights and extract the learned program",
	Long: `Trains on a problem and prints the extracted program, its discrete
verification against the examples, and the confident final valuations.

The problem is either a built-in name (see "difflog problems") or the path
of a problem YAML file.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

var problemsCmd = &cobra.Command{
	Use:   "problems",
	Short: "List the built-in problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range problems.Names() {
			fmt.Println(name)
		}
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [problem]",
	Short: "Print the candidate clause space of a problem",
	Long: `Enumerates the candidate clauses of every template slot without
training, in the order the clause weights index them.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List training runs saved with --db",
	RunE:  runRuns,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	trainCmd.Flags().StringVar(&configPath, "config", "", "training config YAML file")
	trainCmd.Flags().IntVar(&steps, "steps", 0, "training steps (overrides config)")
	trainCmd.Flags().Float64Var(&lr, "lr", 0, "learning rate (overrides config)")
	trainCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (overrides config)")
	trainCmd.Flags().Float64Var(&batch, "batch", 0, "mini-batch fraction in (0,1] (overrides config)")
	trainCmd.Flags().Float64Var(&threshold, "threshold", 0, "clause confidence threshold (overrides config)")
	trainCmd.Flags().Float64Var(&stopLoss, "stop-loss", 0, "stop early below this loss (overrides config)")
	trainCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to record the run in")

	runsCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to read runs from")
	_ = runsCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(trainCmd, problemsCmd, generateCmd, runsCmd)
}

// loadProblem resolves the problem argument: a YAML path when it looks like a
// file, otherwise a built-in name.
func loadProblem(arg string) (ilp.Problem, ilp.ProgramTemplate, error) {
	if strings.HasSuffix(arg, ".yaml") || strings.HasSuffix(arg, ".yml") {
		return problems.Load(arg)
	}
	return problems.Builtin(arg)
}

func trainingConfig(cmd *cobra.Command) (config.Training, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("lr") {
		cfg.LearningRate = lr
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("batch") {
		cfg.MiniBatchFraction = batch
	}
	if flags.Changed("threshold") {
		cfg.ClauseProbThreshold = threshold
	}
	if flags.Changed("stop-loss") {
		cfg.StopLoss = stopLoss
	}
	return cfg, cfg.Validate()
}

func runTrain(cmd *cobra.Command, args []string) error {
	prob, tmpl, err := loadProblem(args[0])
	if err != nil {
		return err
	}
	cfg, err := trainingConfig(cmd)
	if err != nil {
		return err
	}

	m, err := infer.NewMachine(prob, tmpl)
	if err != nil {
		return err
	}
	tr, err := train.New(m, prob, cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := tr.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d steps, final loss %.4f\n", res.RunID, res.Steps, res.FinalLoss)
	fmt.Println("\nlearned program:")
	var clauses []logic.Clause
	for _, def := range res.Program {
		fmt.Printf("  %s\n", def)
		clauses = append(clauses, def.Clause)
	}

	rep, err := verify.Run(prob, clauses)
	if err != nil {
		fmt.Printf("\nverification failed: %v\n", err)
	} else if rep.Consistent() {
		fmt.Printf("\nverified: entails all %d positives, rejects all %d negatives\n", rep.Entailed, rep.Rejected)
	} else {
		fmt.Printf("\nnot verified: %d positives missing, %d negatives derived\n", len(rep.Missing), len(rep.Spurious))
	}

	fmt.Println("\nconfident valuations (>= 0.9):")
	vals := m.Valuations(res.Valuation, 0.9)
	for _, name := range sortedKeys(vals) {
		fmt.Printf("  %-24s %.4f\n", name, vals[name])
	}

	if dbPath != "" {
		s, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.SaveRun(prob.Name, cfg, res); err != nil {
			return err
		}
		logger.Info("run saved", zap.String("run_id", res.RunID), zap.String("db", dbPath))
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prob, tmpl, err := loadProblem(args[0])
	if err != nil {
		return err
	}
	if err := prob.Validate(tmpl); err != nil {
		return err
	}
	for _, pred := range ilp.Learned(prob.Lang, tmpl) {
		pair := tmpl.Rules[pred]
		for si, rt := range pair.Slots() {
			clauses, err := ilp.Generate(prob.Lang, tmpl, pred, rt)
			if err != nil {
				return err
			}
			fmt.Printf("%s slot %d: %d candidates\n", pred, si+1, len(clauses))
			for _, c := range clauses {
				fmt.Printf("  %s\n", c)
			}
		}
	}
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns()
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  %-12s  steps=%-4d loss=%.4f stopped=%v  %s\n",
			r.RunID, r.Problem, r.Steps, r.FinalLoss, r.Stopped, r.CreatedAt.Format("2006-01-02 15:04:05"))
		defs, err := s.Definitions(r.RunID)
		if err != nil {
			return err
		}
		for _, d := range defs {
			fmt.Printf("    %s\n", d)
		}
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
