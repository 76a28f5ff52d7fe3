/*
Package tracing provides lightweight request tracing for the package host.

A trace id arrives in X-Trace-ID or is generated per request, flows through
the request context into loads, and is echoed back in the response headers.
Finished spans are handed to a buffered collector that writes them to the
structured log.

# Usage

	tracer := tracing.New(logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "loader.load")
	defer tracer.Submit(span)
	span.SetTag("artifact", path)

Loggers pick up the current trace with tracing.Fields(ctx).
*/
package tracing
