package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"prepcore/internal/blob"
	"prepcore/pkg/checklist"
)

// ExportFormat identifies a rendering of a checklist export.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// ExportStatus tracks the lifecycle of an export job.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportArtifact captures a stored checklist artifact.
type ExportArtifact struct {
	Key         string       `json:"key"`
	Format      ExportFormat `json:"format"`
	ContentType string       `json:"content_type"`
	SizeBytes   int64        `json:"size_bytes"`
	URL         string       `json:"url"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ExportRecord tracks an export request and resulting artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	ProfileID   string           `json:"profile_id"`
	Formats     []ExportFormat   `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	ProfileID   string
	Formats     []ExportFormat
	RequestedBy string
	Reason      string
}

// ExportScheduler queues checklist export requests and exposes status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// ChecklistSource provides the data rendered into export artifacts.
type ChecklistSource interface {
	BuildChecklist(ctx context.Context, profileID string) ([]checklist.Category, error)
	ChecklistStatuses(ctx context.Context, profileID string) (map[string]checklist.Status, error)
	BuildChecklistSummary(ctx context.Context, profileID string) (checklist.Summary, error)
}

// ExportAuditLogger records export audit entries.
type ExportAuditLogger interface {
	Record(ctx context.Context, entry ExportAuditEntry)
}

// ExportAuditEntry captures audit trail metadata for exports.
type ExportAuditEntry struct {
	ID         string       `json:"id"`
	Action     string       `json:"action"`
	Actor      string       `json:"actor"`
	ProfileID  string       `json:"profile_id"`
	Status     ExportStatus `json:"status"`
	Reason     string       `json:"reason,omitempty"`
	Note       string       `json:"note,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Worker renders checklist exports asynchronously and stores the artifacts in
// a blob store.
type Worker struct {
	source ChecklistSource
	store  blob.Store
	audit  ExportAuditLogger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id        string
	profileID string
}

// NewWorker constructs an export worker.
func NewWorker(source ChecklistSource, store blob.Store, audit ExportAuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		audit:  audit,
		queue:  make(chan exportTask, 32),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules an export job and returns the queued record.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.source == nil {
		return ExportRecord{}, fmt.Errorf("export source not configured")
	}
	if strings.TrimSpace(input.ProfileID) == "" {
		return ExportRecord{}, fmt.Errorf("profile id required")
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []ExportFormat{FormatJSON, FormatCSV}
	}
	uniq := make([]ExportFormat, 0, len(formats))
	seen := make(map[ExportFormat]struct{})
	for _, format := range formats {
		if _, dup := seen[format]; dup {
			continue
		}
		if format != FormatJSON && format != FormatCSV {
			return ExportRecord{}, fmt.Errorf("unsupported export format %s", format)
		}
		uniq = append(uniq, format)
		seen[format] = struct{}{}
	}

	id := newExportID()
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          id,
		ProfileID:   input.ProfileID,
		Formats:     uniq,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record.copy()
	w.mu.Unlock()

	w.recordAudit(ctx, id, ExportStatusQueued, "")

	select {
	case w.queue <- exportTask{id: id, profileID: input.ProfileID}:
	default:
		return ExportRecord{}, fmt.Errorf("export queue full")
	}

	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	w.updateStatus(task.id, ExportStatusRunning, "")

	categories, err := w.source.BuildChecklist(w.ctx, task.profileID)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("build checklist: %v", err))
		return
	}
	statuses, err := w.source.ChecklistStatuses(w.ctx, task.profileID)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("checklist statuses: %v", err))
		return
	}
	summary, err := w.source.BuildChecklistSummary(w.ctx, task.profileID)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("checklist summary: %v", err))
		return
	}

	formats := w.formatsFor(task.id)
	artifacts := make([]ExportArtifact, 0, len(formats))
	for _, format := range formats {
		payload, contentType, err := renderExport(format, categories, statuses, summary)
		if err != nil {
			w.fail(task.id, err.Error())
			return
		}
		key := fmt.Sprintf("exports/%s/checklist.%s", task.id, format)
		artifact := ExportArtifact{
			Key:         key,
			Format:      format,
			ContentType: contentType,
			SizeBytes:   int64(len(payload)),
			CreatedAt:   time.Now().UTC(),
		}
		if w.store != nil {
			info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: contentType})
			if err != nil {
				w.fail(task.id, fmt.Sprintf("store artifact: %v", err))
				return
			}
			artifact.SizeBytes = info.Size
			artifact.URL = info.URL
		}
		artifacts = append(artifacts, artifact)
	}

	w.complete(task.id, artifacts)
}

func renderExport(format ExportFormat, categories []checklist.Category, statuses map[string]checklist.Status, summary checklist.Summary) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.Marshal(map[string]any{
			"categories": categories,
			"statuses":   statuses,
			"summary":    summary,
		})
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		var buf bytes.Buffer
		writer := csv.NewWriter(&buf)
		header := []string{"category", "item_id", "name", "checked", "last_checked", "recheck_days", "status", "source", "plan"}
		if err := writer.Write(header); err != nil {
			return nil, "", fmt.Errorf("write csv header: %w", err)
		}
		for _, cat := range categories {
			for _, item := range cat.Items {
				row := []string{
					cat.Name,
					item.ID,
					item.Name,
					strconv.FormatBool(item.Checked),
					item.LastChecked,
					strconv.Itoa(item.RecheckDays),
					string(statuses[item.ID]),
					string(item.Source),
					item.Plan,
				}
				if err := writer.Write(row); err != nil {
					return nil, "", fmt.Errorf("write csv row: %w", err)
				}
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, "", fmt.Errorf("flush csv: %w", err)
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %s", format)
	}
}

func (w *Worker) formatsFor(id string) []ExportFormat {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if record, ok := w.jobs[id]; ok {
		return append([]ExportFormat(nil), record.Formats...)
	}
	return nil
}

func (w *Worker) updateStatus(id string, status ExportStatus, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, status, message)
}

func (w *Worker) complete(id string, artifacts []ExportArtifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, ExportStatusSucceeded, "")
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, ExportStatusFailed, reason)
}

func (w *Worker) recordAudit(ctx context.Context, id string, status ExportStatus, note string) {
	if w.audit == nil {
		return
	}
	w.mu.RLock()
	var actor, profileID, reason string
	if record, ok := w.jobs[id]; ok {
		actor = record.RequestedBy
		profileID = record.ProfileID
		reason = record.Reason
	}
	w.mu.RUnlock()
	w.audit.Record(ctx, ExportAuditEntry{
		ID:         newExportID(),
		Action:     "checklist_export",
		Actor:      actor,
		ProfileID:  profileID,
		Status:     status,
		Reason:     reason,
		Note:       note,
		OccurredAt: time.Now().UTC(),
	})
}

func (r ExportRecord) copy() ExportRecord {
	out := r
	out.Formats = append([]ExportFormat(nil), r.Formats...)
	out.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

func newExportID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("export-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
