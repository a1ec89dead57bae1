// Package api implements the HTTP REST API and WebSocket server for the
// Gray Logic device service.
//
// This package provides:
//   - REST endpoints over the device registry, locations and device links
//   - Read access to the device type catalog
//   - A WebSocket hub that relays device notifications to subscribed clients
//   - Bearer-token authentication with role-based permissions
//   - An asynchronous audit trail of every successful change
//   - Middleware stack (request ID, logging, metrics, recovery, CORS)
//
// # Architecture
//
// The server sits between user interfaces (wall panels, mobile apps, web
// admin) and the device registry. Mutations run through the registry and
// the devices themselves, which persist and then notify; the process wires
// the Hub into that notification fan-out next to MQTT, so WebSocket
// subscribers of "device.updated" see every stored change.
//
// WebSocket clients only subscribe to device channels ("device.updated",
// "device.pairing.start" or "device.*") and may narrow them to a list of
// device ids. Each connection opens with a session frame listing the
// caller's role and permissions.
//
// # Security
//
// Every route except /health, /metrics and /ws requires an HS256 access
// token in the Authorization header. Browsers cannot set headers on the
// WebSocket upgrade, so /ws takes the token from the token query parameter.
// Users may read and operate devices; admins may also reshape the
// installation (create, delete, layout, abilities, links, locations)
// and read the audit trail.
package api
