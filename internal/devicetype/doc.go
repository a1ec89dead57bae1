// Package devicetype loads device type descriptors declared by skills.
//
// A catalog is a YAML file listing one entry per (skill, name) pair:
//
//	device_types:
//	  - skill: lighting
//	    name: bulb
//	    abilities: [switch, dim]
//	    heartbeat_rate: 60
//	    allow_heartbeat_override: false
//	    config_template:
//	      transition_ms: 400
//
// Catalog implements device.TypeCatalog.
package devicetype
