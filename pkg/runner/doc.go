/*
Package runner executes the shell commands that build and start a
tentacle: synchronous commands for the build pipeline, and long-lived
spawned processes for the started service.

# Synchronous commands

RunSync runs one command to completion, capturing stdout and stderr
separately into a Result. The build pipeline runs its command list
through RunSync in order, stopping at the first non-zero exit.

# Spawned processes

Spawn starts a long-lived process in its own process group so it can
be torn down as a unit, independent of whatever subprocesses it forks.
Stream starts two goroutines that read the spawned process's stdout
and stderr line by line, delivering each line on a channel as it
arrives; each goroutine closes its channel and exits on EOF.

Terminate asks the process group to exit gracefully (SIGTERM on POSIX,
CTRL_BREAK on Windows) and, if it hasn't exited within the grace
period, force-kills it. Process-group handling is platform-conditional
and lives in runner_unix.go / runner_windows.go behind the identical
processGroup type.

# Non-goals

RunSync and Spawn trust the command templates they're given; neither
sandboxes nor validates the commands themselves (see ProcessRunner
non-goals).
*/
package runner
