package protocol

const (
	// Handshake/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"
	ErrServerFull      = "E_SERVER_FULL"

	// Connection lifecycle.
	ErrDuplicateLogin = "E_DUPLICATE_LOGIN"
	ErrSlowClient     = "E_SLOW_CLIENT"
	ErrTimeout        = "E_TIMEOUT"
	ErrShutdown       = "E_SHUTDOWN"

	// Gameplay input.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrServerFull:      {},
	ErrDuplicateLogin:  {},
	ErrSlowClient:      {},
	ErrTimeout:         {},
	ErrShutdown:        {},
	ErrBadRequest:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
