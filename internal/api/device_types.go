package api

import "net/http"

// deviceTypeView is the catalog entry as returned to clients.
type deviceTypeView struct {
	Skill                  string         `json:"skill"`
	Name                   string         `json:"name"`
	Abilities              string         `json:"abilities"`
	AbilityNames           []string       `json:"ability_names"`
	HeartbeatRate          int            `json:"heartbeat_rate"`
	AllowHeartbeatOverride bool           `json:"allow_heartbeat_override"`
	ConfigTemplate         map[string]any `json:"config_template"`
}

// handleListDeviceTypes returns the loaded catalog ordered by skill, then name.
func (s *Server) handleListDeviceTypes(w http.ResponseWriter, _ *http.Request) {
	types := s.catalog.List()
	views := make([]deviceTypeView, 0, len(types))
	for _, t := range types {
		views = append(views, deviceTypeView{
			Skill:                  t.Skill,
			Name:                   t.Name,
			Abilities:              t.Abilities.String(),
			AbilityNames:           t.Abilities.Names(),
			HeartbeatRate:          t.HeartbeatRate,
			AllowHeartbeatOverride: t.AllowHeartbeatOverride,
			ConfigTemplate:         t.ConfigTemplate,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_types": views, "count": len(views)})
}
