/*
Package observability turns controller lifecycle events into logs and metrics.

Both LoggingHooks and Metrics.Hooks return domain.LifecycleHooks; combine them
with LifecycleHooks.Merge and pass the result to anchorsync.WithLifecycleHooks.
*/
package observability
