// Package ws implements the real-time collaboration hub: WebSocket
// connection handling, per-connection session actors, and room broadcast
// over the shared store's pub/sub.
//
// The package implements:
//   - Client: buffered outbound queue over one WebSocket connection
//   - Router: room-scoped and global fan-out backed by shared-store pub/sub,
//     so broadcasts reach sessions on every server instance
//   - Session: per-connection actor owning presence, document sync, chat and
//     voice signaling for one collaborator
//   - Handler: connection gating, upgrade, and the read/write pumps
//   - Service: wiring, session registry and administrative kicks
//
// No mutable state is shared in-process between sessions; everything
// cross-connection goes through the shared store.
package ws
