package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/pausesim/sim/hierarchy"
	"github.com/inference-sim/pausesim/sim/trace"
)

var (
	// CLI flags shared by run and tree
	scenarioPath string // Path to the scenario YAML
	logLevel     string // Log verbosity level

	// CLI flags for run
	horizonOverride int64  // Overrides the scenario horizon when > 0
	traceLevel      string // Overrides the scenario trace level when set
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "pausesim",
	Short: "Discrete-event simulation loop with cooperative suspend/resume",
}

// setupLogging applies the --log flag.
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadScenarioFromFlags loads the scenario and applies CLI overrides.
func loadScenarioFromFlags() *Scenario {
	if scenarioPath == "" {
		logrus.Fatalf("Scenario not provided (--config). Exiting simulation.")
	}
	sc, err := LoadScenario(scenarioPath)
	if err != nil {
		logrus.Fatalf("Unable to load scenario: %v", err)
	}
	if horizonOverride > 0 {
		sc.Horizon = horizonOverride
	}
	if traceLevel != "" {
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Unknown trace level %q", traceLevel)
		}
		sc.Trace = traceLevel
	}
	return sc
}

// runCmd executes the scenario using parameters from the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario with scripted suspend requesters",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		sc := loadScenarioFromFlags()

		logrus.Infof("Starting simulation with horizon=%d ticks, tick=%d, %d root components, %d requesters",
			sc.Horizon, sc.Tick, len(sc.Components), len(sc.Requesters))

		report := runScenario(sc)
		report.Print(os.Stdout, sc.TraceLevel() == trace.TraceLevelTransitions)

		logrus.Info("Simulation complete.")
	},
}

// treeCmd prints the component hierarchy of a scenario
var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the component hierarchy of a scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		sc := loadScenarioFromFlags()
		tree, _ := buildTree(sc.Components)
		printTree(os.Stdout, tree)
	},
}

// printTree writes one line per node, indented by depth; session-aware
// nodes are marked with "[session]".
func printTree(w io.Writer, tree *hierarchy.Tree) {
	var visit func(n hierarchy.Node, depth int)
	visit = func(n hierarchy.Node, depth int) {
		mark := ""
		if _, ok := hierarchy.Session(n); ok {
			mark = " [session]"
		}
		name := n.Name()
		if m, ok := n.(interface{ BaseName() string }); ok {
			name = m.BaseName()
		}
		fmt.Fprintf(w, "%*s%s%s\n", depth*2, "", name, mark)
		for _, c := range n.Children() {
			visit(c, depth+1)
		}
	}
	for _, root := range tree.Roots() {
		visit(root, 0)
	}
	fmt.Fprintf(w, "%d components\n", tree.Len())
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&scenarioPath, "config", "", "Path to the scenario YAML")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().Int64Var(&horizonOverride, "horizon", 0, "Total simulation horizon in ticks (overrides the scenario)")
	runCmd.Flags().StringVar(&traceLevel, "trace", "", "Trace level: none or transitions (overrides the scenario)")

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(treeCmd)
}
