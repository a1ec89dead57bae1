package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-devices/internal/audit"
	"github.com/nerrad567/gray-logic-devices/internal/location"
)

func (s *Server) handleListLocations(w http.ResponseWriter, _ *http.Request) {
	locations := s.locations.List()
	writeJSON(w, http.StatusOK, map[string]any{"locations": locations, "count": len(locations)})
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	loc, err := s.locations.Get(id)
	if err != nil {
		writeDomainError(w, err, "failed to get location")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	loc := &location.Location{
		Name:           req.Name,
		ParentLocation: req.ParentLocation,
		Synonyms:       req.Synonyms,
		Settings:       location.Settings(req.Settings),
	}
	if err := s.locations.Create(r.Context(), loc); err != nil {
		writeDomainError(w, err, "failed to create location")
		return
	}
	s.auditLog(r, audit.ActionCreate, audit.EntityLocation, loc.ID, map[string]any{"name": loc.Name})
	writeJSON(w, http.StatusCreated, loc)
}

// handleDeleteLocation removes a leaf location. Devices parented there keep
// their parent id and report a location miss afterwards.
func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	if err := s.locations.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "failed to delete location")
		return
	}
	s.auditLog(r, audit.ActionDelete, audit.EntityLocation, id, nil)
	w.WriteHeader(http.StatusNoContent)
}
