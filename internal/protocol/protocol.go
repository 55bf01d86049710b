package protocol

// Terminates every request frame.
const Delimiter byte = 0x00

// Leading byte of every response.
const (
	CodeReject      byte = 'X'
	CodeSpawnFailed byte = 'F'
	CodeExited      byte = 'C'
	CodeSignaled    byte = 'S'
)

// Response to an unknown key or a frame that is not valid text.
func Reject() []byte {
	return []byte{CodeReject}
}

// Response to a command that could not be started.
func SpawnFailed() []byte {
	return []byte{CodeSpawnFailed}
}

// Response to a command that exited with code.
func Exited(code int) []byte {
	return []byte{CodeExited, byte(code & 0xff)}
}

// Response to a command killed by signal sig.
func Signaled(sig int) []byte {
	return []byte{CodeSignaled, byte(sig & 0xff)}
}

// Names a response for logs and metrics.
func Describe(resp []byte) string {
	if len(resp) == 0 {
		return "empty"
	}
	switch resp[0] {
	case CodeReject:
		return "reject"
	case CodeSpawnFailed:
		return "spawn_failed"
	case CodeExited:
		return "exited"
	case CodeSignaled:
		return "signaled"
	default:
		return "unknown"
	}
}
