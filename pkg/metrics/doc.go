/*
Package metrics exposes Prometheus counters and histograms for the lock
manager and collection engine.

Unlike a process-wide exporter, a Registry belongs to one Session: the
Session constructs it, the lock manager and collection engine record
into it, and nothing is ever registered against the global default
registry. This keeps several Sessions opened in the same process (as a
test binary routinely does) from panicking on duplicate metric
registration.
*/
package metrics
