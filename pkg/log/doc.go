/*
Package log provides structured logging for the tentacle supervisor using
zerolog.

A single global Logger is initialized once via Init and is safe for
concurrent use from every package. Output is either JSON (for production,
scraped by a log aggregator) or a human-readable console format (for local
development), selected by Config.JSONOutput.

Component loggers (WithComponent, WithBranch) attach a fixed field to every
subsequent log line so that log lines from the fleet controller, a single
tentacle's build/start pipeline, or the reverse proxy can be told apart
without repeating the field at every call site:

	blog := log.WithBranch("feat/login")
	blog.Info().Msg("build started")

Helper functions (Info, Debug, Warn, Error, Fatal) log against the global
Logger directly for call sites that don't need a component field.
*/
package log
