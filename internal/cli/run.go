package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"storyloop/internal/agent"
	"storyloop/internal/config"
	"storyloop/internal/gitops"
	"storyloop/internal/loop"
	"storyloop/internal/ratelimit"
	"storyloop/internal/runs"
	"storyloop/internal/story"
	"storyloop/internal/trace"
)

var (
	runAgentFlag    string
	runReviewerFlag string
	runMaxRounds    int
	runNameFlag     string
	runNoUpdate     bool
)

var runCmd = &cobra.Command{
	Use:   "run [max-iterations]",
	Short: "Drive the implement → review → commit loop for a run",
	Long: `run iterates the story queue: for each unpassed story it invokes the
implementation agent, checks that something was staged, invokes the
reviewer, and dispatches the verdict. The optional positional argument
bounds the number of outer iterations.

Pass --reviewer skip to bypass review entirely; every round that stages
changes is then committed directly.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoop,
}

func init() {
	addRunFlags(runCmd.Flags())
}

// addRunFlags binds the run flags to a flag set. The root command registers
// the same flags so a bare "storyloop" invocation behaves like "storyloop
// run".
func addRunFlags(fs *pflag.FlagSet) {
	fs.StringVar(&runAgentFlag, "agent", "", "implementation agent tool (claude, codex, cursor)")
	fs.StringVar(&runReviewerFlag, "reviewer", "", "reviewer tool, or 'skip' to bypass review")
	fs.IntVar(&runMaxRounds, "max-rounds", 0, "max implement/review rounds per story per iteration")
	fs.StringVar(&runNameFlag, "run", "", "explicit run name under .storyloop/runs/")
	fs.BoolVar(&runNoUpdate, "no-update", false, "skip self-update (accepted for wrapper compatibility; always a no-op)")
}

func runLoop(cmd *cobra.Command, args []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	maxIterations := 0
	if len(args) == 1 {
		maxIterations, err = strconv.Atoi(args[0])
		if err != nil || maxIterations < 1 {
			return fmt.Errorf("max-iterations must be a positive integer, got %q", args[0])
		}
	}

	cfg, err := config.LoadWorkspace(workDir)
	if err != nil {
		return err
	}
	if runAgentFlag != "" {
		cfg.Agent.Tool = runAgentFlag
	}
	if runReviewerFlag != "" && runReviewerFlag != "skip" {
		cfg.Reviewer.Tool = runReviewerFlag
	}
	skipReview := runReviewerFlag == "skip" || cfg.Reviewer.Skip
	if runMaxRounds > 0 {
		cfg.Loop.MaxRounds = runMaxRounds
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	git := gitops.New(workDir)
	branch, _ := git.Branch()

	resolver := &runs.Resolver{WorkspaceDir: workDir, Branch: branch}
	runDir, err := resolver.Resolve(runNameFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "using run %s\n", runDir)

	implementer, err := agent.ForTool(cfg.Agent.Tool, cfg.Agent.Model)
	if err != nil {
		return err
	}
	var reviewer agent.Invoker
	if !skipReview {
		reviewer, err = agent.ForTool(cfg.Reviewer.Tool, cfg.Reviewer.Model)
		if err != nil {
			return err
		}
	}

	var implementOpts, reviewOpts []agent.Option
	if cfg.Agent.PTY {
		implementOpts = append(implementOpts, agent.WithPTY())
		reviewOpts = append(reviewOpts, agent.WithPTY())
	}
	if d := cfg.AgentTimeout(); d > 0 {
		implementOpts = append(implementOpts, agent.WithTimeout(d))
	}
	if d := cfg.ReviewerTimeout(); d > 0 {
		reviewOpts = append(reviewOpts, agent.WithTimeout(d))
	}
	implement, reviewFn := loop.AgentHooks(workDir, implementer, reviewer, implementOpts, reviewOpts)

	// An in-flight round always finishes; the interrupt is observed at the
	// iteration boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, err := trace.New(ctx)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: tracing disabled: %v\n", err)
	}
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	var observers []loop.ProgressObserver
	if obs := trace.NewObserver(ctx, tracer); obs != nil {
		observers = append(observers, obs)
	}

	l, err := loop.New(loop.Config{
		WorkDir:       workDir,
		Store:         story.NewStore(runDir),
		Git:           git,
		MaxIterations: maxIterations,
		MaxRounds:     cfg.Loop.MaxRounds,
		SkipReview:    skipReview,
		RateLimit: &ratelimit.Controller{
			Detector:   ratelimit.NewDetector(cfg.RateLimit.Signatures),
			Delays:     cfg.Delays(),
			WaitBudget: cfg.WaitBudget(),
			Output:     out,
		},
		Implement: implement,
		Review:    reviewFn,
		Output:    out,
		Observer:  loop.NewMultiObserver(observers...),
	})
	if err != nil {
		return err
	}

	summary, err := l.Run(ctx)
	if err != nil {
		return err
	}
	if code := summary.StopReason.ExitCode(); code != 0 {
		return &ExitError{Code: code, Message: fmt.Sprintf("stopped: %s", summary.StopReason)}
	}
	return nil
}
