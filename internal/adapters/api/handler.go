package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"prepcore/internal/blob"
	"prepcore/internal/core"
	"prepcore/pkg/domain"
)

// Handler provides HTTP access to the preparedness service: entity CRUD,
// per-profile checklists, guide attachments, and checklist exports.
type Handler struct {
	Service *core.Service
	Blobs   blob.Store
	Exports ExportScheduler
}

// NewHandler constructs the API handler.
func NewHandler(svc *core.Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case strings.HasPrefix(path, "/api/v1/communities"):
		h.handleCommunities(w, r, strings.TrimPrefix(path, "/api/v1/communities"))
	case strings.HasPrefix(path, "/api/v1/profiles"):
		h.handleProfiles(w, r, strings.TrimPrefix(path, "/api/v1/profiles"))
	case strings.HasPrefix(path, "/api/v1/alerts"):
		h.handleAlerts(w, r, strings.TrimPrefix(path, "/api/v1/alerts"))
	case strings.HasPrefix(path, "/api/v1/guides"):
		h.handleGuides(w, r, strings.TrimPrefix(path, "/api/v1/guides"))
	case strings.HasPrefix(path, "/api/v1/contacts"):
		h.handleContacts(w, r, strings.TrimPrefix(path, "/api/v1/contacts"))
	case strings.HasPrefix(path, "/api/v1/map-points"):
		h.handleMapPoints(w, r, strings.TrimPrefix(path, "/api/v1/map-points"))
	case strings.HasPrefix(path, "/api/v1/exports"):
		h.handleExports(w, r, strings.TrimPrefix(path, "/api/v1/exports"))
	default:
		http.NotFound(w, r)
	}
}

func segments(remainder string) []string {
	trimmed := strings.Trim(remainder, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func (h *Handler) handleCommunities(w http.ResponseWriter, r *http.Request, remainder string) {
	parts := segments(remainder)
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"communities": h.Service.Store().ListCommunities()})
	case len(parts) == 0 && r.Method == http.MethodPost:
		var community domain.Community
		if err := decodeBody(r, &community); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, res, err := h.Service.CreateCommunity(r.Context(), community)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"community": created, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodGet:
		community, ok := h.Service.Store().GetCommunity(parts[0])
		if !ok {
			writeError(w, http.StatusNotFound, "community not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"community": community})
	case len(parts) == 1 && r.Method == http.MethodPut:
		var patch domain.Community
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated, res, err := h.Service.UpdateCommunity(r.Context(), parts[0], func(c *domain.Community) error {
			base := c.Base
			*c = patch
			c.Base = base
			return nil
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"community": updated, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if _, err := h.Service.DeleteCommunity(r.Context(), parts[0]); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleProfiles(w http.ResponseWriter, r *http.Request, remainder string) {
	parts := segments(remainder)
	if len(parts) >= 2 && parts[1] == "checklist" {
		h.handleChecklist(w, r, parts[0], parts[2:])
		return
	}
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"profiles": h.Service.Store().ListProfiles()})
	case len(parts) == 0 && r.Method == http.MethodPost:
		var profile domain.UserProfile
		if err := decodeBody(r, &profile); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, res, err := h.Service.CreateProfile(r.Context(), profile)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"profile": created, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodGet:
		profile, ok := h.Service.Store().GetProfile(parts[0])
		if !ok {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
	case len(parts) == 1 && r.Method == http.MethodPut:
		var patch domain.UserProfile
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated, res, err := h.Service.UpdateProfile(r.Context(), parts[0], func(p *domain.UserProfile) error {
			base := p.Base
			*p = patch
			p.Base = base
			return nil
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": updated, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if _, err := h.Service.DeleteProfile(r.Context(), parts[0]); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type checklistItemRequest struct {
	Checked bool `json:"checked"`
}

func (h *Handler) handleChecklist(w http.ResponseWriter, r *http.Request, profileID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		categories, err := h.Service.BuildChecklist(r.Context(), profileID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
	case len(rest) == 0 && r.Method == http.MethodDelete:
		if _, err := h.Service.ResetChecklist(r.Context(), profileID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(rest) == 1 && rest[0] == "summary" && r.Method == http.MethodGet:
		summary, err := h.Service.BuildChecklistSummary(r.Context(), profileID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
	case len(rest) == 1 && rest[0] == "status" && r.Method == http.MethodGet:
		statuses, err := h.Service.ChecklistStatuses(r.Context(), profileID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"statuses": statuses})
	case len(rest) == 2 && rest[0] == "items" && r.Method == http.MethodPut:
		var req checklistItemRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		state, _, err := h.Service.SetChecklistItem(r.Context(), profileID, rest[1], req.Checked)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": state})
	default:
		writeError(w, http.StatusNotFound, "checklist endpoint not found")
	}
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request, remainder string) {
	parts := segments(remainder)
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"alerts": h.Service.Store().ListAlerts()})
	case len(parts) == 0 && r.Method == http.MethodPost:
		var alert domain.Alert
		if err := decodeBody(r, &alert); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, res, err := h.Service.CreateAlert(r.Context(), alert)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"alert": created, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodGet:
		alert, ok := h.Service.Store().GetAlert(parts[0])
		if !ok {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"alert": alert})
	case len(parts) == 1 && r.Method == http.MethodPut:
		var patch domain.Alert
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated, res, err := h.Service.UpdateAlert(r.Context(), parts[0], func(a *domain.Alert) error {
			base := a.Base
			*a = patch
			a.Base = base
			return nil
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"alert": updated, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if _, err := h.Service.DeleteAlert(r.Context(), parts[0]); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleGuides(w http.ResponseWriter, r *http.Request, remainder string) {
	parts := segments(remainder)
	if len(parts) == 2 && parts[1] == "attachment" {
		h.handleGuideAttachment(w, r, parts[0])
		return
	}
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"guides": h.Service.Store().ListGuides()})
	case len(parts) == 0 && r.Method == http.MethodPost:
		var guide domain.Guide
		if err := decodeBody(r, &guide); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, res, err := h.Service.CreateGuide(r.Context(), guide)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"guide": created, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodGet:
		guide, ok := h.Service.Store().GetGuide(parts[0])
		if !ok {
			writeError(w, http.StatusNotFound, "guide not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"guide": guide})
	case len(parts) == 1 && r.Method == http.MethodPut:
		var patch domain.Guide
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated, res, err := h.Service.UpdateGuide(r.Context(), parts[0], func(g *domain.Guide) error {
			base := g.Base
			attachment := g.AttachmentKey
			*g = patch
			g.Base = base
			if patch.AttachmentKey == nil {
				g.AttachmentKey = attachment
			}
			return nil
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"guide": updated, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if _, err := h.Service.DeleteGuide(r.Context(), parts[0]); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleGuideAttachment(w http.ResponseWriter, r *http.Request, guideID string) {
	if h.Blobs == nil {
		writeError(w, http.StatusNotImplemented, "blob store not configured")
		return
	}
	guide, ok := h.Service.Store().GetGuide(guideID)
	if !ok {
		writeError(w, http.StatusNotFound, "guide not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		key := fmt.Sprintf("guides/%s/attachment-%s", guideID, newExportID())
		info, err := h.Blobs.Put(r.Context(), key, r.Body, blob.PutOptions{ContentType: contentType})
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("store attachment: %v", err))
			return
		}
		if _, _, err := h.Service.UpdateGuide(r.Context(), guideID, func(g *domain.Guide) error {
			g.AttachmentKey = &info.Key
			return nil
		}); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"attachment": info})
	case http.MethodGet:
		if guide.AttachmentKey == nil {
			writeError(w, http.StatusNotFound, "guide has no attachment")
			return
		}
		info, body, err := h.Blobs.Get(r.Context(), *guide.AttachmentKey)
		if err != nil {
			writeError(w, http.StatusNotFound, "attachment not found")
			return
		}
		defer func() { _ = body.Close() }()
		if info.ContentType != "" {
			w.Header().Set("Content-Type", info.ContentType)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, body)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleContacts(w http.ResponseWriter, r *http.Request, remainder string) {
	parts := segments(remainder)
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"contacts": h.Service.Store().ListContacts()})
	case len(parts) == 0 && r.Method == http.MethodPost:
		var contact domain.EmergencyContact
		if err := decodeBody(r, &contact); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, res, err := h.Service.CreateContact(r.Context(), contact)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"contact": created, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodGet:
		contact, ok := h.Service.Store().GetContact(parts[0])
		if !ok {
			writeError(w, http.StatusNotFound, "contact not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"contact": contact})
	case len(parts) == 1 && r.Method == http.MethodPut:
		var patch domain.EmergencyContact
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated, res, err := h.Service.UpdateContact(r.Context(), parts[0], func(c *domain.EmergencyContact) error {
			base := c.Base
			*c = patch
			c.Base = base
			return nil
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"contact": updated, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if _, err := h.Service.DeleteContact(r.Context(), parts[0]); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleMapPoints(w http.ResponseWriter, r *http.Request, remainder string) {
	parts := segments(remainder)
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"map_points": h.Service.Store().ListMapPoints()})
	case len(parts) == 0 && r.Method == http.MethodPost:
		var point domain.MapPoint
		if err := decodeBody(r, &point); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, res, err := h.Service.CreateMapPoint(r.Context(), point)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"map_point": created, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodGet:
		point, ok := h.Service.Store().GetMapPoint(parts[0])
		if !ok {
			writeError(w, http.StatusNotFound, "map point not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"map_point": point})
	case len(parts) == 1 && r.Method == http.MethodPut:
		var patch domain.MapPoint
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated, res, err := h.Service.UpdateMapPoint(r.Context(), parts[0], func(p *domain.MapPoint) error {
			base := p.Base
			*p = patch
			p.Base = base
			return nil
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"map_point": updated, "violations": res.Violations})
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if _, err := h.Service.DeleteMapPoint(r.Context(), parts[0]); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type exportRequest struct {
	ProfileID   string         `json:"profile_id"`
	Formats     []ExportFormat `json:"formats"`
	RequestedBy string         `json:"requested_by"`
	Reason      string         `json:"reason"`
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request, remainder string) {
	if h.Exports == nil {
		http.NotFound(w, r)
		return
	}
	parts := segments(remainder)
	switch {
	case len(parts) == 0 && r.Method == http.MethodPost:
		var req exportRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		record, err := h.Exports.EnqueueExport(r.Context(), ExportInput{
			ProfileID:   req.ProfileID,
			Formats:     req.Formats,
			RequestedBy: req.RequestedBy,
			Reason:      req.Reason,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
	case len(parts) == 1 && r.Method == http.MethodGet:
		record, ok := h.Exports.GetExport(parts[0])
		if !ok {
			writeError(w, http.StatusNotFound, "export not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"export": record})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	var notFound core.ErrNotFound
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var violation domain.RuleViolationError
	if errors.As(err, &violation) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      violation.Error(),
			"violations": violation.Result.Violations,
		})
		return
	}
	if strings.Contains(err.Error(), "not found") {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
