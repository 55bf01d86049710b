// Package protocol implements the trigger wire format.
//
// A client sends a key followed by a single null byte. There is no length
// prefix, so frames are recovered with an incremental [Scanner] that makes
// no assumption about how reads line up with frame boundaries. The server
// answers every frame with one of:
//
//	'X'        key is not valid text or is not configured
//	'F'        the command could not be started
//	'C' <n>    the command exited with code n (mod 256)
//	'S' <n>    the command was killed by signal n (mod 256)
package protocol
