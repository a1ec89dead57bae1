// Package influxdb records device contact telemetry in InfluxDB.
//
// Every heartbeat and every connectivity flip the device registry observes
// becomes a device_contact point tagged with the device uid. The history
// lets the UI chart when a satellite dropped off the network.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	switch {
//	case errors.Is(err, influxdb.ErrDisabled):
//	    // run without telemetry
//	case err != nil:
//	    logger.Warn("influxdb unavailable", "error", err)
//	default:
//	    defer client.Close()
//	    registry.SetContactRecorder(client)
//	}
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Asynchronous write failures reach the SetOnError callback.
package influxdb
