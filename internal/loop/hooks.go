package loop

import (
	"context"

	"storyloop/internal/agent"
	"storyloop/internal/review"
	"storyloop/internal/story"
)

// AgentHooks builds the Implement and Review hooks for a Config from real
// agent invokers. The implementer receives a fresh implement prompt, or a
// fix prompt embedding the retained verdict's issues when one exists; the
// reviewer receives the verdict file contract and the current baseline.
// Each invoker carries its own option set, so the implementer and reviewer
// can run with different timeouts.
func AgentHooks(workDir string, implementer, reviewer agent.Invoker, implementOpts, reviewOpts []agent.Option) (
	implement func(ctx context.Context, st *story.Story, retained *review.Report) (string, error),
	reviewFn func(ctx context.Context, st *story.Story, baseline string) (string, error),
) {
	implement = func(ctx context.Context, st *story.Story, retained *review.Report) (string, error) {
		prompt := RenderImplementPrompt(st)
		if retained != nil {
			prompt = RenderFixPrompt(st, retained)
		}
		res, err := agent.Invoke(ctx, workDir, implementer, prompt, implementOpts...)
		if err != nil {
			return "", err
		}
		return res.Output, nil
	}

	if reviewer != nil {
		reviewFn = func(ctx context.Context, st *story.Story, baseline string) (string, error) {
			res, err := agent.Invoke(ctx, workDir, reviewer, RenderReviewPrompt(st, baseline), reviewOpts...)
			if err != nil {
				return "", err
			}
			return res.Output, nil
		}
	}

	return implement, reviewFn
}
