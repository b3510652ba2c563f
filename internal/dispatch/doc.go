// Package dispatch routes normalized chat events to the support coordinator.
//
// Text messages starting with the configured prefix followed by a known
// command word (support, close, cancel, getid) go to the matching handler.
// Everything else is ordinary text and is offered for relay. Handler errors
// are logged here and never propagate to the transport's event loop.
package dispatch
