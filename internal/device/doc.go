// Package device provides the Device entity and its Registry for Gray Logic.
//
// A Device is a smart-home device declared by a skill. Its type descriptor
// is resolved from a catalog at construction time and fixes its default
// abilities, heartbeat rate and config template. Each device carries three
// state layers:
//
//   - Settings: UI layout (x, y, z, w, h, r plus free keys), merged over defaults
//   - Params: free-form runtime values, read with a default
//   - Configs: validated configuration seeded from the type template
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────────┐
//	│                           Registry                                │
//	│                                                                   │
//	│  ┌──────────────┐   ┌──────────────┐   ┌──────────────────────┐   │
//	│  │   Devices    │   │ Device links │   │ Pairing / Heartbeat  │   │
//	│  │ (by identity)│   │              │   │ sessions, contacts   │   │
//	│  └──────┬───────┘   └──────┬───────┘   └──────────┬───────────┘   │
//	└─────────│──────────────────│──────────────────────│───────────────┘
//	          │                  │                      │
//	          ▼                  ▼                      ▼
//	┌──────────────────┐  ┌──────────────┐     ┌─────────────────┐
//	│ SQLiteRepository │  │ device_links │     │    Notifier     │
//	│ (devices table)  │  │    table     │     │ (MQTT + WS hub) │
//	└──────────────────┘  └──────────────┘     └─────────────────┘
//
// # Persistence
//
// New inserts and assigns an identity without notifying. Every later
// mutation that persists (UpdateParams, SetDisplayName, SetParentLocation,
// PairingDone, Save) replaces the stored row and then publishes the device
// view on TopicUpdated. UpdateSettings and SetAbilities only change memory.
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo, repo, catalog)
//	registry.SetLogger(log)
//	registry.SetNotifier(sink)
//
//	if err := registry.Load(ctx); err != nil {
//	    return err
//	}
//
//	d, err := registry.Create(ctx, device.Fields{
//	    TypeName:       "MotionSensor",
//	    SkillName:      "ZigbeeSkill",
//	    ParentLocation: 1,
//	})
//	if errors.Is(err, device.ErrTypeUndefined) {
//	    // the skill does not declare that type
//	}
//
//	_ = d.UpdateParams(ctx, "state", true)
package device
