// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the relay handler.
const (
	RelayUnavailableError  = 3000 // The broker refused the subscription.
	SubscriptionEndedError = 3001 // The broker ended the subscription, e.g. on shutdown.
)
