// Package config loads the device service settings from one YAML file.
//
// Sections map one-to-one onto the service's moving parts: the SQLite device
// store, the MQTT broker carrying heartbeats and pairing, the REST and
// WebSocket API, optional InfluxDB contact history, and the devices block
// (type catalog path, heartbeat grace, pairing timeout, icon root).
//
// Defaults cover a single-site install. A handful of GRAYLOGIC_* environment
// variables override the file, chiefly for secrets:
//
//	GRAYLOGIC_JWT_SECRET       security.jwt.secret
//	GRAYLOGIC_MQTT_PASSWORD    mqtt.auth.password
//	GRAYLOGIC_INFLUXDB_TOKEN   influxdb.token
//	GRAYLOGIC_DEVICE_TYPES     devices.types_file
//
// Load validates after overriding, so a missing secret or type catalog path
// fails at startup rather than on first use. Second-valued fields have
// Duration getters:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	registry.SetPairingTimeout(cfg.GetPairingTimeout())
package config
