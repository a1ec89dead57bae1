package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-devices/internal/audit"
	"github.com/nerrad567/gray-logic-devices/internal/device"
	"github.com/nerrad567/gray-logic-devices/internal/location"
)

// handleListDevices returns every device view.
//
// Query parameters:
//   - location: only devices whose parent is this location
//   - skill: only devices of this skill
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var parent *int64
	if raw := q.Get("location"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "invalid location filter")
			return
		}
		parent = &id
	}
	skill := q.Get("skill")

	views := make([]device.View, 0, s.registry.Count())
	for _, d := range s.registry.List() {
		if parent != nil && d.ParentLocation() != *parent {
			continue
		}
		if skill != "" && d.SkillName() != skill {
			continue
		}
		views = append(views, d.View())
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": views, "count": len(views)})
}

// handleGetDevice returns a single device view.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

// handleCreateDevice runs the create path: resolve the type, apply defaults,
// insert and assign an identity.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	abilities, err := device.ParseAbilities(req.Abilities)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	d, err := s.registry.Create(r.Context(), device.Fields{
		UID:            req.UID,
		TypeName:       req.TypeName,
		SkillName:      req.SkillName,
		ParentLocation: req.ParentLocation,
		DisplayName:    req.DisplayName,
		Abilities:      abilities,
		Settings:       req.Settings,
		Params:         req.DeviceParams,
		Configs:        req.DeviceConfigs,
	})
	if err != nil {
		writeDomainError(w, err, "failed to create device")
		return
	}

	s.auditLog(r, audit.ActionCreate, audit.EntityDevice, d.ID(), map[string]any{
		"type_name":  req.TypeName,
		"skill_name": req.SkillName,
	})
	writeJSON(w, http.StatusCreated, d.View())
}

// handleUpdateDevice renames and/or moves a device in a single update.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	var req updateDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DisplayName == nil && req.ParentLocation == nil {
		writeBadRequest(w, "nothing to update")
		return
	}

	if req.ParentLocation != nil && *req.ParentLocation != location.Root {
		if _, found := s.locations.Lookup(*req.ParentLocation); !found {
			writeValidationError(w, "parent_location does not exist")
			return
		}
	}

	if err := d.Apply(r.Context(), device.Changes{
		DisplayName:    req.DisplayName,
		ParentLocation: req.ParentLocation,
	}); err != nil {
		writeDomainError(w, err, "failed to update device")
		return
	}

	details := make(map[string]any, 2)
	if req.DisplayName != nil {
		details["display_name"] = *req.DisplayName
	}
	if req.ParentLocation != nil {
		details["parent_location"] = *req.ParentLocation
	}

	s.auditLog(r, audit.ActionUpdate, audit.EntityDevice, d.ID(), details)
	writeJSON(w, http.StatusOK, d.View())
}

// handleDeleteDevice removes a device and its links.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	if err := s.registry.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "failed to delete device")
		return
	}
	s.auditLog(r, audit.ActionDelete, audit.EntityDevice, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateSettings shallow-merges the body into the layout layer.
// With ?save=true the device is also written through the update path, and a
// failed write leaves the previous layout in place.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if save, _ := strconv.ParseBool(r.URL.Query().Get("save")); save { //nolint:errcheck // absent or malformed means false
		if err := d.SaveSettings(r.Context(), patch); err != nil {
			writeDomainError(w, err, "failed to save device")
			return
		}
		s.auditLog(r, audit.ActionUpdate, audit.EntityDevice, d.ID(), map[string]any{"settings": patch})
	} else if err := d.UpdateSettings(patch); err != nil {
		writeDomainError(w, err, "failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, d.View())
}

// handleGetParam returns one runtime parameter. An absent key reads as false.
func (s *Server) handleGetParam(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": d.Param(key)})
}

// handleSetParam sets one runtime parameter from {"value": ...}.
func (s *Server) handleSetParam(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	value, present := body["value"]
	if !present {
		writeValidationError(w, "value is required")
		return
	}

	key := chi.URLParam(r, "key")
	if err := d.UpdateParams(r.Context(), key, value); err != nil {
		writeDomainError(w, err, "failed to update parameter")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": d.Param(key)})
}

// handleGetAbilities returns the effective ability mask. With
// ?require=a,b it also reports whether every named ability is present.
func (s *Server) handleGetAbilities(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	mask := d.Abilities()
	resp := map[string]any{
		"abilities": mask.String(),
		"names":     mask.Names(),
	}

	if raw := r.URL.Query().Get("require"); raw != "" {
		required, err := device.ParseAbilities(splitList(raw))
		if err != nil {
			writeValidationError(w, err.Error())
			return
		}
		resp["has_abilities"] = d.HasAbilities(required...)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSetAbilities replaces the device's abilities with the named flags,
// overriding the type. An empty list drops the override so the type's
// abilities apply again. Overrides live in memory only.
func (s *Server) handleSetAbilities(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	var req abilitiesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	abilities, err := device.ParseAbilities(req.Abilities)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if len(abilities) == 0 {
		d.ClearAbilities()
	} else {
		d.SetAbilities(abilities...)
	}
	mask := d.Abilities()
	s.auditLog(r, audit.ActionAbilities, audit.EntityDevice, d.ID(), map[string]any{"abilities": mask.Names()})
	writeJSON(w, http.StatusOK, map[string]any{
		"abilities": mask.String(),
		"names":     mask.Names(),
	})
}

// handleCompletePairing records a uid obtained out of band.
func (s *Server) handleCompletePairing(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	var req pairingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := d.PairingDone(r.Context(), req.UID); err != nil {
		writeDomainError(w, err, "failed to complete pairing")
		return
	}
	s.auditLog(r, audit.ActionPair, audit.EntityDevice, d.ID(), map[string]any{"uid": req.UID})
	writeJSON(w, http.StatusOK, d.View())
}

// handleClick is the UI tap on a device tile. Unpaired devices start a
// pairing broadcast; paired devices ignore it.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	paired := d.Paired()
	if err := d.OnUIClick(r.Context()); err != nil {
		writeDomainError(w, err, "failed to start pairing")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"paired":           paired,
		"pairing_started":  !paired,
		"pending_pairings": s.registry.PendingPairings(),
	})
}

// handleGetDeviceLocation resolves the device's parent location.
func (s *Server) handleGetDeviceLocation(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	loc, found := d.Location()
	if !found {
		writeNotFound(w, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// lookupDevice resolves the {id} URL parameter to a live device, writing the
// error response itself when it cannot.
func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request) (*device.Device, bool) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return nil, false
	}
	d, err := s.registry.Get(id)
	if err != nil {
		writeDomainError(w, err, "failed to get device")
		return nil, false
	}
	return d, true
}
