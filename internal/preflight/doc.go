// Package preflight runs the doctor checks that confirm paymentsmcp can serve
// before an MCP client launches it.
//
// The package validates:
//   - Configuration validity (MONGODB_URI present, known transport and log level)
//   - Log file writability, when file logging is configured
//   - MongoDB reachability (connect, ping, close)
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(preflight.WithStoreFactory(factory))
//	results := checker.RunAll(ctx, cfg)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
