/*
Package resilience provides the circuit breaker that guards export invocations.

A breaker starts closed and counts outcomes. When ReadyToTrip approves, it
opens and rejects calls with ErrCircuitOpen until Timeout elapses, then lets
MaxRequests trial calls through while half-open. Enough consecutive successes
close it; any failure reopens it. Cancellation by the caller's context is
not held against the target.

# Usage

	breakers := resilience.NewSet(resilience.DefaultSettings())

	err := breakers.Execute(ctx, exportID, func(ctx context.Context) error {
		resp, err = invoker.Invoke(ctx, req)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// answer 503 without calling the target
	}

	// a remounted package starts with closed breakers
	breakers.Forget(pkg.ExportIDs()...)
*/
package resilience
