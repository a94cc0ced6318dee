// Package submit implements the task submission pipeline.
//
// A submission turns a persisted task into engine calls in five steps:
//
//   - Resolve: the environment task statement, the global session fragment and
//     the task statement are concatenated into one script (Resolver).
//   - Split: the script is split on the configured separator (parser.Split).
//   - Pretreat and classify: comments and fragment variables are handled by an
//     interceptor.Interceptor, and each statement gets a parser.Kind.
//   - Plan: statements are grouped into the DDL, transactional and execute
//     buckets (NewPlan). Without a statement set, planning stops at the first
//     transactional or execute statement.
//   - Drive: buckets are issued to an engine.Session in that fixed order
//     (Driver).
//
// # Usage Example
//
//	submitter := submit.New(submit.Params{
//		Repository: store,
//		Engine:     registry,
//		Stager:     stager,
//	})
//
//	if err := submitter.Submit(ctx, submit.AppConfig{TaskID: 42}); err != nil {
//		var execErr *submit.ExecutionError
//		if errors.As(err, &execErr) {
//			log.Fatalf("%s statement rejected: %s", execErr.Bucket, execErr.Statement)
//		}
//		log.Fatal(err)
//	}
//
// # Error Handling
//
// Lookup failures abort before any engine call. Statement failures abort the
// remaining sequence without rolling back what already ran. A failed final job
// run is only logged: by then the job has been handed to the engine.
package submit
