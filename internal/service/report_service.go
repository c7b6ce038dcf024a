package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harborfin/onboarding-api/internal/drive"
	"github.com/harborfin/onboarding-api/internal/dto"
	appErrors "github.com/harborfin/onboarding-api/pkg/errors"
	"github.com/harborfin/onboarding-api/pkg/export"
	"github.com/harborfin/onboarding-api/pkg/storage"
)

type reportQuestionLister interface {
	ListWithStatus(ctx context.Context, loginKey string) ([]dto.QuestionStatus, error)
}

type reportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ReportServiceConfig tunes report rendering and retention.
type ReportServiceConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    string
	ExpiresAt time.Time
}

// ReportService renders onboarding completion reports. Generation is
// synchronous: the datasets are one row per question, so rendering is
// cheap and the handler returns the signed download URL directly.
type ReportService struct {
	clients   questionClientStore
	questions reportQuestionLister
	storage   reportFileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ReportServiceConfig
}

// NewReportService constructs the service.
func NewReportService(clients questionClientStore, questions reportQuestionLister, store reportFileStorage, signer *storage.SignedURLSigner, cfg ReportServiceConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ReportService{
		clients:   clients,
		questions: questions,
		storage:   store,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders a client's completion report and returns its signed
// download URL.
func (s *ReportService) Generate(ctx context.Context, loginKey string, req dto.GenerateReportRequest) (*dto.ReportResponse, error) {
	format := strings.ToLower(req.Format)
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}

	client, err := s.clients.FindByLoginKey(ctx, loginKey)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	statuses, err := s.questions.ListWithStatus(ctx, loginKey)
	if err != nil {
		return nil, err
	}

	dataset := completionDataset(statuses)
	title := fmt.Sprintf("Onboarding Status %s", client.ClientName)

	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	reportID := uuid.NewString()
	filename := fmt.Sprintf("%s_%s_%s.%s",
		drive.Sanitize(client.ClientName), loginKey, time.Now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	token, expiresAt, err := s.signer.Generate(reportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &dto.ReportResponse{
		ID:          reportID,
		Format:      format,
		DownloadURL: fmt.Sprintf("%s/reports/%s/download?token=%s", prefix, reportID, token),
		ExpiresAt:   expiresAt,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// ResolveDownload validates a token and opens the stored report file.
func (s *ReportService) ResolveDownload(reportID, token string) (*ReportDownload, error) {
	tokenID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	if tokenID != reportID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report no longer available")
	}
	ext := strings.TrimPrefix(filepath.Ext(relPath), ".")
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    ext,
		ExpiresAt: expiresAt,
	}, nil
}

// StartCleanup boots a goroutine that purges expired reports periodically.
func (s *ReportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
				if err != nil {
					s.logger.Warn("report cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					s.logger.Info("expired reports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

func completionDataset(statuses []dto.QuestionStatus) export.Dataset {
	rows := make([]map[string]string, 0, len(statuses))
	complete := 0
	for _, status := range statuses {
		state := "pending"
		if status.Complete {
			state = "complete"
			complete++
		}
		rows = append(rows, map[string]string{
			"Question":  status.Question,
			"Templates": fmt.Sprintf("%d", len(status.Templates)),
			"Status":    state,
		})
	}
	rows = append(rows, map[string]string{
		"Question":  "TOTAL",
		"Templates": "",
		"Status":    fmt.Sprintf("%d/%d complete", complete, len(statuses)),
	})
	return export.Dataset{
		Headers: []string{"Question", "Templates", "Status"},
		Rows:    rows,
	}
}
