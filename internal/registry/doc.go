// Package registry loads the key to command mapping served by the daemon.
//
// A configuration file is a flat mapping of keys to command lines. It is
// decoded as YAML, which also accepts the JSON object form:
//
//	{"backup": "/usr/local/bin/backup --full", "lock": "LANG=C loginctl lock-sessions"}
//
// Each key must be a non-empty string without null bytes, since the null
// byte delimits requests on the wire. Each command line is split into words
// with sh quoting rules. Leading NAME=VALUE words are environment
// assignments; the first word without "=" is the executable and everything
// after it is passed as arguments. No shell expansion is performed and
// characters such as "|", "&" or "$" are ordinary text.
//
// Loading is all-or-nothing: any malformed entry fails the whole file, and
// an empty mapping is rejected. A [Registry] is never mutated once built and
// may be shared freely between goroutines.
//
// Example usage:
//
//	reg, err := registry.Load("/etc/triggerd/commands.json")
//	if err != nil {
//	    return err
//	}
//
//	if cmd, ok := reg.Lookup("backup"); ok {
//	    fmt.Println(cmd.Argv())
//	}
package registry
