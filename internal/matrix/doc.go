// Package matrix is the Matrix frontend of helpdesk-bridge.
//
// # Mapping
//
// Bridge implements chat.Transport on top of mautrix and feeds /sync events
// to a Router:
//
//   - conversations are DM rooms; a room with at most two joined members is
//     private, the configured staff room is staff, anything else is a group
//   - a thread is the event ID of a root message the bot posts in the staff
//     room; replies are sent with an m.thread relation to that root
//   - the root carries a "helpdesk.ticket" content field naming the DM it
//     was opened for, and its echo through /sync confirms the thread
//   - prompts are notices the bot seeds with one reaction per option; a
//     user's reaction on a prompt is a selection, acknowledged with a read
//     receipt
//   - deleting a message redacts it
//
// # Sync
//
// Each room has its own lane: its events are handled in order, while other
// rooms proceed in parallel. Events from before startup are skipped, and replays of already handled events are dropped through a
// dedupe.Window. Invites are accepted automatically.
//
// # Encryption
//
// EnableEncryption attaches a cryptohelper backed by a per-account SQLite
// store in the data directory.
package matrix
