package platform

import "github.com/erg0nix/spill/jsonrpc"

// Application error taxonomy. Codes are fixed wire contract with the client;
// all sit outside the JSON-RPC reserved range.

func AuthenticationRequired() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(1, "Authentication required", nil)
}

func BackendNotAvailable() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(2, "Backend not available", nil)
}

func BackendTimeout() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(3, "Backend timed out", nil)
}

func BackendError() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(4, "Backend error", nil)
}

func TooManyRequests() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(5, "Too many requests. Try again later", nil)
}

func UnknownBackendResponse() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(6, "Backend responded in unknown way", nil)
}

func InvalidCredentials() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(100, "Invalid credentials", nil)
}

func NetworkError() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(101, "Network error", nil)
}

func ProtocolError() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(103, "Protocol error", nil)
}

func TemporaryBlocked() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(104, "Temporary blocked", nil)
}

func Banned() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(105, "Banned", nil)
}

func AccessDenied() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(106, "Access denied", nil)
}

func FailedParsingManifest() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(200, "Failed parsing manifest", nil)
}

func TooManyMessagesSent() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(300, "Too many messages sent", nil)
}

func IncoherentLastMessage() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(400, "Different last message id on backend", nil)
}

func MessageNotFound() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(500, "Message not found", nil)
}

func ImportInProgress() *jsonrpc.Error {
	return jsonrpc.NewApplicationError(600, "Import already in progress", nil)
}
