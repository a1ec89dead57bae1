// Package logging provides the structured slog logger shared by the device
// service.
//
// Every entry carries service=graylogic-devices and the build version.
// Subsystems derive their own logger with Component, so registry, MQTT,
// API and WebSocket lines can be filtered apart:
//
//	log := logging.New(cfg.Logging, version)
//	registry.SetLogger(log.Component("devices"))
//	// {"level":"INFO","msg":"device deleted","service":"graylogic-devices","component":"devices","id":12}
//
// Output is JSON by default, text for development, and may go to stdout,
// stderr or an appended file. A file that cannot be opened falls back to
// stderr with a warning.
//
// Device uids and display names are fine to log; access tokens and the
// MQTT password are not.
package logging
