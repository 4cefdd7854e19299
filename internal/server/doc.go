// Package server provides HTTP routing, middleware, and the JSON API for the smartwake daemon.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so "GET /api/alarms/{id}"
// both filters on method and exposes the ID through [http.Request.PathValue].
//
// # API
//
// [API] exposes the orchestrator: alarm CRUD, snooze and dismissal, on-demand adaptation checks,
// asset readiness, config, statistics, and export/import in every format the formatter package
// renders. Errors are mapped from the shared sentinel errors onto status codes and written as
// {"error": "..."}.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// [MetricsHandler] is mounted this way.
//
// # Lifecycle
//
// [Server.ListenAndServe] runs until its context is cancelled and then drains in-flight requests.
package server
