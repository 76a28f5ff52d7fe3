/*
Package monitoring provides Prometheus metrics for builds, loads, the mount
registry and the host API.

# Overview

Each Metrics value owns a private registry, so tests and embedded hosts can
create as many collectors as they like. All recording methods accept a nil
receiver.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewLoadTimer(metrics)
	// ... load ...
	timer.Stop("success")
*/
package monitoring
