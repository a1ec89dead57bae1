package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-devices/internal/audit"
	"github.com/nerrad567/gray-logic-devices/internal/device"
)

// handleListDeviceLinks returns the links that tie a device to other locations.
func (s *Server) handleListDeviceLinks(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	links := make([]device.Link, 0)
	for _, l := range s.registry.DeviceLinks() {
		if l.DeviceID == d.ID() {
			links = append(links, l)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links, "count": len(links)})
}

// handleCreateLink ties a device to a location other than its parent.
func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}

	var req createLinkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	link, err := s.registry.AddLink(r.Context(), id, req.TargetLocation)
	if err != nil {
		writeDomainError(w, err, "failed to create link")
		return
	}
	s.auditLog(r, audit.ActionCreate, audit.EntityLink, link.ID, map[string]any{
		"device_id":       id,
		"target_location": req.TargetLocation,
	})
	writeJSON(w, http.StatusCreated, link)
}

// handleLinkedTo reports whether the device is linked to {location}.
func (s *Server) handleLinkedTo(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	target, ok := pathInt64(w, r, "location")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"linked": d.LinkedTo(target)})
}

// handleDeleteLink removes a link by its own ID.
func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	if err := s.registry.RemoveLink(r.Context(), id); err != nil {
		writeDomainError(w, err, "failed to delete link")
		return
	}
	s.auditLog(r, audit.ActionDelete, audit.EntityLink, id, nil)
	w.WriteHeader(http.StatusNoContent)
}
