// Package server implements the triggerd daemon.
//
// The daemon listens on a Unix domain socket. Each connection carries any
// number of requests, handled strictly one after another: the client sends a
// key terminated by a null byte, the server looks the key up in the
// registry, runs the configured command to completion and writes a short
// response code (see the protocol package). Connections are served
// concurrently and share only the immutable registry.
//
// Stopping the server refuses new connections, lets every in-flight command
// finish and report its result, closes each connection after its current
// request, and returns once all handlers have exited. Commands are never
// interrupted and there is no timeout on the drain.
//
// Example usage:
//
//	srv, err := server.New(server.Config{
//	    SocketPath: "/run/triggerd.sock",
//	    Registry:   reg,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//
//	<-ctx.Done()
//	srv.Stop()
package server
