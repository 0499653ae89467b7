package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/internal/telemetry"
	"eduagent-knowledge/models"
)

// SuggestedQuestionsWriter persists the questions produced for one video
type SuggestedQuestionsWriter interface {
	Save(ctx context.Context, record *models.SuggestedQuestionsRecord) error
}

// VideoIngestRequest carries the video path inputs. FileID and OrganizationID
// are optional; without both, generated questions are not persisted.
type VideoIngestRequest struct {
	FilePath       string
	DocumentID     string
	Filename       string
	FileID         string
	OrganizationID string
	DisplayName    string
}

const defaultQuestionsSaveTimeout = 30 * time.Second

// DocumentProcessor drives PDF and video ingestion end to end
type DocumentProcessor struct {
	extractor            PageExtractor
	transcriber          Transcriber
	chunker              *Chunker
	questions            *QuestionGenerator
	store                *VectorStore
	questionsRepo        SuggestedQuestionsWriter
	transcriptionTimeout time.Duration
	questionsTimeout     time.Duration
	metrics              *telemetry.Metrics
	now                  func() time.Time
}

type DocumentProcessorDeps struct {
	Extractor            PageExtractor
	Transcriber          Transcriber
	Chunker              *Chunker
	Questions            *QuestionGenerator // optional
	Store                *VectorStore
	QuestionsRepo        SuggestedQuestionsWriter // optional
	TranscriptionTimeout time.Duration
	QuestionsSaveTimeout time.Duration // defaults to 30s
	Metrics              *telemetry.Metrics
}

func NewDocumentProcessor(deps DocumentProcessorDeps) *DocumentProcessor {
	questionsTimeout := deps.QuestionsSaveTimeout
	if questionsTimeout <= 0 {
		questionsTimeout = defaultQuestionsSaveTimeout
	}
	return &DocumentProcessor{
		extractor:            deps.Extractor,
		transcriber:          deps.Transcriber,
		chunker:              deps.Chunker,
		questions:            deps.Questions,
		store:                deps.Store,
		questionsRepo:        deps.QuestionsRepo,
		transcriptionTimeout: deps.TranscriptionTimeout,
		questionsTimeout:     questionsTimeout,
		metrics:              deps.Metrics,
		now:                  time.Now,
	}
}

// IngestPDF chunks every page on its own so each chunk keeps an accurate page
// number, numbering chunks continuously across pages.
func (p *DocumentProcessor) IngestPDF(ctx context.Context, filePath, documentID, filename string) (result models.PDFIngestResult) {
	started := time.Now()
	log := logger.ForDocument(documentID, string(models.SourcePDF))
	base := filepath.Base(filePath)

	defer func() {
		if r := recover(); r != nil {
			log.Error("PDF ingestion panicked", "panic", r)
			result = pdfError(documentID, base, fmt.Errorf("%v", r))
		}
		p.metrics.RecordIngest(string(models.SourcePDF), string(result.Status), time.Since(started).Seconds())
	}()

	pages, err := p.extractor.ExtractPages(ctx, filePath)
	if err != nil {
		log.Error("PDF extraction failed", "error", err)
		return pdfError(documentID, base, err)
	}

	createdAt := p.now()
	var chunks []models.Chunk
	for i, text := range pages {
		page := i + 1
		for _, piece := range p.chunker.Split(text) {
			chunks = append(chunks, models.Chunk{
				Content:          piece,
				DocumentID:       documentID,
				Source:           models.SourcePDF,
				ChunkIndex:       len(chunks),
				Page:             &page,
				Filename:         base,
				OriginalFilename: filename,
				CreatedAt:        createdAt,
			})
		}
	}
	log.Info("PDF chunked", "pages", len(pages), "chunks", len(chunks))

	stored := p.store.Store(ctx, chunks, models.SourcePDF)
	if stored.Status != models.StatusSuccess {
		log.Warn("PDF chunks not fully stored", "status", stored.Status, "message", stored.Message)
	}

	return models.PDFIngestResult{
		Status:        models.StatusSuccess,
		Message:       "PDF processed successfully",
		DocumentID:    documentID,
		Filename:      base,
		ChunksCreated: len(chunks),
		TotalPages:    len(pages),
		Chunks:        chunks,
		Store:         stored,
	}
}

func pdfError(documentID, filename string, err error) models.PDFIngestResult {
	return models.PDFIngestResult{
		Status:     models.StatusError,
		Message:    "Error processing PDF: " + err.Error(),
		DocumentID: documentID,
		Filename:   filename,
	}
}

// IngestVideo transcribes, chunks and time-aligns a video, generating
// suggested questions on the fixed cadence as it goes.
func (p *DocumentProcessor) IngestVideo(ctx context.Context, req VideoIngestRequest) (result models.VideoIngestResult) {
	started := time.Now()
	log := logger.ForDocument(req.DocumentID, string(models.SourceVideo))
	base := filepath.Base(req.FilePath)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Video ingestion panicked", "panic", r)
			result = videoError(req.DocumentID, base, fmt.Errorf("%v", r))
		}
		p.metrics.RecordIngest(string(models.SourceVideo), string(result.Status), time.Since(started).Seconds())
	}()

	transcript, err := p.transcribe(ctx, req.FilePath)
	if err != nil {
		log.Error("Transcription failed", "error", err)
		return videoError(req.DocumentID, base, err)
	}
	language := transcript.Language
	if language == "" {
		language = "unknown"
	}

	aligner := NewTimestampAligner(transcript.Segments)
	pieces := p.chunker.Split(transcript.Text)
	spans := LocateChunks(transcript.Text, pieces)

	createdAt := p.now()
	chunks := make([]models.Chunk, 0, len(pieces))
	var segments []models.TimeSegment
	for i, piece := range pieces {
		tr := aligner.Resolve(spans[i])
		chunks = append(chunks, models.Chunk{
			Content:          piece,
			DocumentID:       req.DocumentID,
			Source:           models.SourceVideo,
			ChunkIndex:       i,
			TimestampRange:   &tr,
			Filename:         base,
			OriginalFilename: req.Filename,
			Language:         language,
			CreatedAt:        createdAt,
		})

		if p.questions == nil || !ShouldGenerateQuestions(i, piece) {
			continue
		}
		qs := p.questions.Generate(ctx, piece, tr.Start, tr.End)
		if len(qs) == 0 {
			continue
		}
		for j := range qs {
			qs[j].SegmentContext = piece
		}
		segments = append(segments, models.TimeSegment{Questions: qs})
	}
	log.Info("Video chunked", "chunks", len(chunks), "question_segments", len(segments), "language", language)

	stored := p.store.Store(ctx, chunks, models.SourceVideo)
	if stored.Status != models.StatusSuccess {
		log.Warn("Video chunks not fully stored", "status", stored.Status, "message", stored.Message)
	}

	if len(segments) > 0 && req.FileID != "" && req.OrganizationID != "" && p.questionsRepo != nil {
		p.saveQuestions(ctx, req, segments, createdAt)
	}

	return models.VideoIngestResult{
		Status:            models.StatusSuccess,
		Message:           "Video processed successfully",
		DocumentID:        req.DocumentID,
		Filename:          base,
		ChunksCreated:     len(chunks),
		QuestionsSegments: len(segments),
		Language:          language,
		Chunks:            chunks,
		Store:             stored,
	}
}

func (p *DocumentProcessor) transcribe(ctx context.Context, filePath string) (*Transcript, error) {
	if p.transcriptionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.transcriptionTimeout)
		defer cancel()
	}
	transcript, err := p.transcriber.Transcribe(ctx, filePath)
	if err != nil {
		return nil, err
	}
	if transcript == nil {
		return nil, ErrEmptyTranscript
	}
	return transcript, nil
}

// saveQuestions is best-effort: a failure, timeout or panic is logged and
// ingestion still succeeds
func (p *DocumentProcessor) saveQuestions(ctx context.Context, req VideoIngestRequest, segments []models.TimeSegment, at time.Time) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Suggested questions save panicked", "document_id", req.DocumentID, "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, p.questionsTimeout)
	defer cancel()

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Filename
	}
	record := &models.SuggestedQuestionsRecord{
		DocumentID:     req.DocumentID,
		FileID:         req.FileID,
		OrganizationID: req.OrganizationID,
		Filename:       req.Filename,
		DisplayName:    displayName,
		Segments:       segments,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	if err := p.questionsRepo.Save(ctx, record); err != nil {
		logger.Warn("Failed to store suggested questions", "document_id", req.DocumentID, "error", err)
		return
	}
	logger.Info("Stored suggested questions", "document_id", req.DocumentID, "segments", len(segments))
}

func videoError(documentID, filename string, err error) models.VideoIngestResult {
	return models.VideoIngestResult{
		Status:     models.StatusError,
		Message:    "Error processing video: " + err.Error(),
		DocumentID: documentID,
		Filename:   filename,
	}
}
