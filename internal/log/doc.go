// Package log provides the structured logger used by aurorareport, built on
// the standard slog package.
//
// The renderer under test is started with a copy of the process
// environment, and the render step logs that environment at debug level.
// CI environments routinely carry credentials (license server tokens, cloud
// keys, CI job tokens), so SecureHandler masks attributes whose key or value
// looks like a secret before records reach the output handler.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("starting renderer",
//	    slog.Group("env", "GITHUB_TOKEN", "ghp_xxx"), // env.GITHUB_TOKEN=***REDACTED***
//	)
package log
