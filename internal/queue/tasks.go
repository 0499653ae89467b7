package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/models"
	"eduagent-knowledge/services"
)

const (
	TaskIngestPDF   = "ingest:pdf"
	TaskIngestVideo = "ingest:video"
)

const (
	PDFTaskTimeout   = 10 * time.Minute
	VideoTaskTimeout = 90 * time.Minute

	lockMargin = 15 * time.Minute
)

// LockTTL raises the configured ingest lock lifetime so that a lock always
// outlives the longest task timeout.
func LockTTL(configured time.Duration) time.Duration {
	return max(configured, VideoTaskTimeout+lockMargin)
}

// IngestPayload is shared by both task types
type IngestPayload struct {
	DocumentID     string `json:"document_id"`
	FileID         string `json:"file_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	FilePath       string `json:"file_path"`
	Filename       string `json:"filename"`
	DisplayName    string `json:"display_name,omitempty"`
}

func (p IngestPayload) validate() error {
	if p.DocumentID == "" {
		return errors.New("document_id is required")
	}
	if p.FilePath == "" {
		return errors.New("file_path is required")
	}
	return nil
}

// Task creators
func NewIngestTask(sourceType models.SourceType, payload IngestPayload) (*asynq.Task, error) {
	if err := payload.validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	switch sourceType {
	case models.SourcePDF:
		return asynq.NewTask(
			TaskIngestPDF,
			data,
			asynq.MaxRetry(3),
			asynq.Timeout(PDFTaskTimeout),
			asynq.Queue("critical"),
		), nil
	case models.SourceVideo:
		// transcription dominates; keep long jobs off the critical queue
		return asynq.NewTask(
			TaskIngestVideo,
			data,
			asynq.MaxRetry(2),
			asynq.Timeout(VideoTaskTimeout),
			asynq.Queue("default"),
		), nil
	}
	return nil, fmt.Errorf("unknown document type: %s", sourceType)
}

// Enqueuer is satisfied by *asynq.Client
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// IngestQueue schedules ingestion jobs for the worker
type IngestQueue struct {
	client Enqueuer
}

func NewIngestQueue(client Enqueuer) *IngestQueue {
	return &IngestQueue{client: client}
}

func (q *IngestQueue) Enqueue(ctx context.Context, sourceType models.SourceType, payload IngestPayload) (string, error) {
	task, err := NewIngestTask(sourceType, payload)
	if err != nil {
		return "", err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return info.ID, nil
}

// Task handlers

type Ingestor interface {
	IngestPDF(ctx context.Context, filePath, documentID, filename string) models.PDFIngestResult
	IngestVideo(ctx context.Context, req services.VideoIngestRequest) models.VideoIngestResult
}

type Locker interface {
	Acquire(ctx context.Context, documentID string) (func(), error)
}

type ResultRecorder interface {
	UpdateProcessingResult(ctx context.Context, fileID, status, message string, chunks, pages int) error
}

type TaskProcessor struct {
	ingestor Ingestor
	lock     Locker
	files    ResultRecorder
}

func NewTaskProcessor(ingestor Ingestor, lock Locker, files ResultRecorder) *TaskProcessor {
	return &TaskProcessor{ingestor: ingestor, lock: lock, files: files}
}

// Register wires both handlers into a mux
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskIngestPDF, p.ProcessPDF)
	mux.HandleFunc(TaskIngestVideo, p.ProcessVideo)
}

func (p *TaskProcessor) ProcessPDF(ctx context.Context, t *asynq.Task) error {
	payload, release, err := p.begin(ctx, t)
	if err != nil {
		return err
	}
	defer release()

	res := p.ingestor.IngestPDF(ctx, payload.FilePath, payload.DocumentID, payload.Filename)
	p.finish(ctx, payload, res.Status, res.Message, res.ChunksCreated, res.TotalPages)
	return nil
}

func (p *TaskProcessor) ProcessVideo(ctx context.Context, t *asynq.Task) error {
	payload, release, err := p.begin(ctx, t)
	if err != nil {
		return err
	}
	defer release()

	res := p.ingestor.IngestVideo(ctx, services.VideoIngestRequest{
		FilePath:       payload.FilePath,
		DocumentID:     payload.DocumentID,
		Filename:       payload.Filename,
		FileID:         payload.FileID,
		OrganizationID: payload.OrganizationID,
		DisplayName:    payload.DisplayName,
	})
	p.finish(ctx, payload, res.Status, res.Message, res.ChunksCreated, 0)
	return nil
}

// begin decodes the payload, takes the per-document lock and marks the file
// as processing. Bad payloads and duplicate runs are not retried.
func (p *TaskProcessor) begin(ctx context.Context, t *asynq.Task) (IngestPayload, func(), error) {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, nil, fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}
	if err := payload.validate(); err != nil {
		return payload, nil, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	release, err := p.lock.Acquire(ctx, payload.DocumentID)
	if errors.Is(err, services.ErrIngestInProgress) {
		logger.Warn("Skipping duplicate ingestion", "document_id", payload.DocumentID, "task", t.Type())
		return payload, nil, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return payload, nil, err
	}

	logger.Info("Processing ingestion task", "task", t.Type(), "document_id", payload.DocumentID, "file_id", payload.FileID)
	if payload.FileID != "" {
		if err := p.files.UpdateProcessingResult(ctx, payload.FileID, models.StatusProcessing, "", 0, 0); err != nil {
			logger.Warn("Failed to mark file as processing", "file_id", payload.FileID, "error", err)
		}
	}
	return payload, release, nil
}

// finish records the outcome on the file record. Pipeline errors are final:
// the processor already degraded what it could, so the task is not retried.
func (p *TaskProcessor) finish(ctx context.Context, payload IngestPayload, status models.Status, message string, chunks, pages int) {
	fileStatus := models.StatusCompleted
	if status == models.StatusError {
		fileStatus = models.StatusFailed
		logger.Error("Ingestion failed", "document_id", payload.DocumentID, "message", message)
	} else {
		logger.Info("Ingestion finished", "document_id", payload.DocumentID, "chunks", chunks)
	}
	if payload.FileID == "" {
		return
	}
	if err := p.files.UpdateProcessingResult(ctx, payload.FileID, fileStatus, message, chunks, pages); err != nil {
		logger.Warn("Failed to record ingestion result", "file_id", payload.FileID, "error", err)
	}
}
