// Package support runs the helpdesk session lifecycle.
//
// # Lifecycle
//
// A user starts a request in a private chat. The Coordinator reserves the
// process-wide negotiation slot, asks for a language, then a category, and
// finally asks the transport to open a thread in the staff room. When the
// transport reports the thread back, the conversation is bound to it and
// messages flow both ways until either side closes the ticket.
//
// Only one negotiation runs at a time. A second user starting meanwhile is
// told to retry. Abandoned negotiations are expired by Sweep.
//
// # Persistence
//
// Bindings are memory-authoritative. A Checkpointer wired to Options.OnChange
// writes snapshots through a store.Snapshotter after every committed change.
//
// # Errors
//
// Handlers return an Outcome describing what happened plus an error for
// failed outbound calls, which wrap ErrTransport. Logical rejections (busy,
// already open, not private) are outcomes, not errors.
package support
