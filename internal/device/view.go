package device

// View is the external projection of a device, used by notifications and the API.
// Keys follow the device wire format consumed by dashboards.
type View struct {
	Abilities              string   `json:"abilities"`
	Connected              bool     `json:"connected"`
	DeviceParams           Params   `json:"deviceParams"`
	DisplayName            string   `json:"displayName"`
	Settings               Settings `json:"settings"`
	DeviceConfigs          Configs  `json:"deviceConfigs"`
	ID                     int64    `json:"id"`
	LastContact            int64    `json:"lastContact"`
	ParentLocation         int64    `json:"parentLocation"`
	SkillName              string   `json:"skillName"`
	TypeName               string   `json:"typeName"`
	UID                    string   `json:"uid"`
	HeartbeatRate          int      `json:"heartbeatRate"`
	AllowHeartbeatOverride bool     `json:"allowHeartbeatOverride"`
}

// Update is the payload published on TopicUpdated.
type Update struct {
	UID    string `json:"uid"`
	Device View   `json:"device"`
}

// View builds a fresh snapshot from live state.
func (d *Device) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

func (d *Device) viewLocked() View {
	var lastContact int64
	if !d.lastContact.IsZero() {
		lastContact = d.lastContact.Unix()
	}
	return View{
		Abilities:              d.effectiveAbilities().String(),
		Connected:              d.connected,
		DeviceParams:           d.params.clone(),
		DisplayName:            d.displayName,
		Settings:               d.settings.clone(),
		DeviceConfigs:          d.configs.clone(),
		ID:                     d.id,
		LastContact:            lastContact,
		ParentLocation:         d.parentLocation,
		SkillName:              d.skillName,
		TypeName:               d.typeName,
		UID:                    d.uid,
		HeartbeatRate:          d.heartbeatRate,
		AllowHeartbeatOverride: d.deviceType.AllowHeartbeatOverride,
	}
}
