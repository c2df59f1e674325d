package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"prepcore/internal/adapters/api"
	blobmemory "prepcore/internal/infra/blob/memory"
	"prepcore/internal/core"
	"prepcore/pkg/checklist"
	"prepcore/pkg/domain"
)

func newTestHandler(t *testing.T) (*api.Handler, *core.Service) {
	t.Helper()
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	handler := api.NewHandler(svc)
	handler.Blobs = blobmemory.New()
	return handler, svc
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
}

func TestCommunityCRUDOverHTTP(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/communities", domain.Community{Name: "Bayview", Region: "S"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Community domain.Community `json:"community"`
	}
	decodeInto(t, rec, &created)
	id := created.Community.ID
	if id == "" {
		t.Fatal("expected generated id")
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/communities", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var listed struct {
		Communities []domain.Community `json:"communities"`
	}
	decodeInto(t, rec, &listed)
	if len(listed.Communities) != 1 {
		t.Fatalf("expected 1 community, got %d", len(listed.Communities))
	}

	updated := created.Community
	updated.Region = "SW"
	rec = doJSON(t, handler, http.MethodPut, "/api/v1/communities/"+id, updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", rec.Code, rec.Body.String())
	}
	var afterUpdate struct {
		Community domain.Community `json:"community"`
	}
	decodeInto(t, rec, &afterUpdate)
	if afterUpdate.Community.Region != "SW" {
		t.Fatalf("expected region SW, got %s", afterUpdate.Community.Region)
	}
	if afterUpdate.Community.ID != id {
		t.Fatalf("expected id preserved across update, got %s", afterUpdate.Community.ID)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/communities/"+id, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/communities/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestMapPointValidationReturnsUnprocessable(t *testing.T) {
	handler, svc := newTestHandler(t)
	community, _, err := svc.CreateCommunity(context.Background(), domain.Community{Name: "Bounds"})
	if err != nil {
		t.Fatalf("create community: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/map-points", domain.MapPoint{
		CommunityID: community.ID,
		Name:        "Offworld",
		Latitude:    500,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Violations []domain.Violation `json:"violations"`
	}
	decodeInto(t, rec, &resp)
	if len(resp.Violations) == 0 {
		t.Fatal("expected violations in response body")
	}
}

func TestChecklistEndpoints(t *testing.T) {
	handler, svc := newTestHandler(t)
	ctx := context.Background()

	community, _, err := svc.CreateCommunity(ctx, domain.Community{Name: "Delta"})
	if err != nil {
		t.Fatalf("create community: %v", err)
	}
	if _, _, err := svc.CreateGuide(ctx, domain.Guide{
		CommunityID: community.ID,
		Name:        "Storm",
		Status:      domain.GuideActive,
		Supplies:    []string{"Tarpaulin"},
	}); err != nil {
		t.Fatalf("create guide: %v", err)
	}
	profile, _, err := svc.CreateProfile(ctx, domain.UserProfile{
		DisplayName:  "Kim",
		CommunityIDs: []string{community.ID},
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	base := "/api/v1/profiles/" + profile.ID + "/checklist"

	rec := doJSON(t, handler, http.MethodGet, base, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("checklist status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Categories []checklist.Category `json:"categories"`
	}
	decodeInto(t, rec, &body)
	if len(body.Categories) == 0 {
		t.Fatal("expected categories")
	}
	var planSeen bool
	for _, cat := range body.Categories {
		if strings.HasPrefix(cat.ID, "plan-") {
			planSeen = true
		}
	}
	if !planSeen {
		t.Fatal("expected plan category from active guide")
	}
	itemID := body.Categories[0].Items[0].ID

	rec = doJSON(t, handler, http.MethodPut, base+"/items/"+itemID, map[string]bool{"checked": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("set item status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, base+"/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint %d", rec.Code)
	}
	var statuses struct {
		Statuses map[string]checklist.Status `json:"statuses"`
	}
	decodeInto(t, rec, &statuses)
	if statuses.Statuses[itemID] != checklist.StatusOK {
		t.Fatalf("expected checked item ok, got %s", statuses.Statuses[itemID])
	}

	rec = doJSON(t, handler, http.MethodGet, base+"/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary endpoint %d", rec.Code)
	}
	var summary struct {
		Summary checklist.Summary `json:"summary"`
	}
	decodeInto(t, rec, &summary)
	if summary.Summary.ResponsePlanCount != 1 {
		t.Fatalf("expected one plan, got %d", summary.Summary.ResponsePlanCount)
	}

	rec = doJSON(t, handler, http.MethodDelete, base, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset status %d", rec.Code)
	}
	if _, ok := svc.Store().GetChecklistState(profile.ID); ok {
		t.Fatal("expected overlay removed after reset")
	}
}

func TestChecklistUnknownProfileReturns404(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/profiles/missing/checklist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGuideAttachmentRoundTrip(t *testing.T) {
	handler, svc := newTestHandler(t)
	ctx := context.Background()

	community, _, err := svc.CreateCommunity(ctx, domain.Community{Name: "Attach"})
	if err != nil {
		t.Fatalf("create community: %v", err)
	}
	guide, _, err := svc.CreateGuide(ctx, domain.Guide{
		CommunityID: community.ID,
		Name:        "Evacuation",
		Supplies:    []string{"Map"},
	})
	if err != nil {
		t.Fatalf("create guide: %v", err)
	}

	payload := []byte("%PDF-1.4 fake evacuation plan")
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/guides/%s/attachment", guide.ID), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/pdf")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}

	stored, ok := svc.Store().GetGuide(guide.ID)
	if !ok || stored.AttachmentKey == nil {
		t.Fatal("expected attachment key recorded on guide")
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/guides/%s/attachment", guide.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download status %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected content type %s", rec.Header().Get("Content-Type"))
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Fatal("downloaded payload mismatch")
	}
}

func TestExportEndpoints(t *testing.T) {
	handler, svc := newTestHandler(t)
	ctx := context.Background()

	community, _, err := svc.CreateCommunity(ctx, domain.Community{Name: "Exports"})
	if err != nil {
		t.Fatalf("create community: %v", err)
	}
	profile, _, err := svc.CreateProfile(ctx, domain.UserProfile{
		DisplayName:  "Nia",
		CommunityIDs: []string{community.ID},
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}

	worker := api.NewWorker(svc, blobmemory.New(), nil)
	worker.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = worker.Stop(stopCtx)
	}()
	handler.Exports = worker

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/exports", map[string]any{
		"profile_id":   profile.ID,
		"requested_by": "ops",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("enqueue status %d: %s", rec.Code, rec.Body.String())
	}
	var queued struct {
		Export api.ExportRecord `json:"export"`
	}
	decodeInto(t, rec, &queued)

	final := waitForExport(t, worker, queued.Export.ID)
	if final.Status != api.ExportStatusSucceeded {
		t.Fatalf("expected success, got %s (%s)", final.Status, final.Error)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/exports/"+queued.Export.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get export status %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/exports/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown export, got %d", rec.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodPatch, "/api/v1/communities", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
