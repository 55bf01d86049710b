// Package runner executes registry commands in a sanitized environment.
//
// The child environment is built from scratch. Only a fixed allow-list of
// variables is inherited from the daemon (HOME, PATH, USER, SHELL, TERM), and
// the command's own NAME=VALUE assignments are applied on top so they win
// over inherited values. The executable is resolved against the child's
// PATH, standard input is /dev/null, and standard output and error are
// captured in full.
//
// A [Runner] never cancels, times out or retries a process, and it does not
// log; callers report the returned [Result] themselves.
//
// Example usage:
//
//	res, err := runner.New().Run(cmd)
//	if err != nil {
//	    return err // *SpawnError if the process never started
//	}
//	fmt.Println(res.ExitCode, string(res.Stdout))
package runner
