// Package clickhouse runs submissions against a ClickHouse server.
//
// ClickHouse executes statements eagerly, so a session maps the submission
// calls onto plain statement execution:
//
//   - ExecuteSingle runs the statement.
//   - ExecuteBatch runs the statements of a statement set in order and stops at
//     the first failure. ClickHouse has no multi-statement transactions; the set
//     is ordered but not atomic.
//   - RunJob returns a handle for the work already executed.
//
// The task's parallelism is applied as the max_threads setting of the
// connection. Connections may use mutual TLS.
//
// Example usage:
//
//	eng := clickhouse.New(clickhouse.Options{
//		DSN: "clickhouse://default:@localhost:9000/analytics",
//	})
//
//	registry := engine.NewRegistry().Register(eng, "clickhouse")
package clickhouse
