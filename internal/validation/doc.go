// Package validation reviews task output and plans refinement.
//
// # Overview
//
// Task-level review sends the task's requirements and a preview of each
// artifact to the validator agent:
//
//	v := validation.NewValidator(registry, inference)
//	verdict, err := v.ValidateTask(ctx, task, artifacts)
//
// The reply is parsed in order of preference:
//
//  1. A JSON object with "validation_passed" and "reason"
//  2. The same object embedded in surrounding prose
//  3. HeuristicVerdict on the raw text
//
// A verdict never fails the run. If the validator agent is not registered or
// its inference call fails, the task passes vacuously and the event is
// logged. Only cancellation is reported as an error.
//
// # Refinement
//
// When a verdict fails, RetryHandler builds a refinement task that depends on
// the failed one and carries its unsatisfied requirements, together with a
// prompt that embeds the reviewer's reason:
//
//	h := validation.NewRetryHandler(validation.RetryConfig{MaxPasses: 2})
//	for pass := 0; !verdict.Passed && h.ShouldRetry(pass); pass++ {
//	    child := h.RefinementTask(prev)
//	    prompt := h.RefinementPrompt(prev, verdict, pass+1)
//	    // execute child with prompt, then review it
//	}
package validation
