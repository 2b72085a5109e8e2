// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room socket.
const (
	BadSubprotocolError  = 3000 // Client connected with an unsupported subprotocol.
	RoomNotFoundError    = 3003 // The room code in the URL does not exist.
	RoomUnavailableError = 3004 // The room store could not be reached.
	SlowConsumerError    = 3005 // The client fell too far behind the room's updates.
)
