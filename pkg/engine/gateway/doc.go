// Package gateway runs submissions through the REST API of a Flink SQL gateway.
//
// A session is opened per submission with properties derived from the task's
// settings (runtime mode, parallelism, checkpoint interval, savepoint path and
// job name) plus any extra engine config, such as staged jars. Each statement
// is submitted as an operation whose status is polled until it completes. A
// statement set is submitted as a single EXECUTE STATEMENT SET block, which the
// gateway runs as one job.
//
// Example usage:
//
//	eng, err := gateway.New(gateway.Options{URL: "http://localhost:8083"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	registry := engine.NewRegistry().Register(eng, "remote", "kubernetes-application")
package gateway
