// Package metrics exposes prometheus instrumentation for the device service:
// store operations, notifications, the registered-device gauge and HTTP
// requests. Collectors live on a private registry served by Handler.
package metrics
