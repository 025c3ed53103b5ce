package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/auth"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/document"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/document/repository"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/storage"
	appErrors "github.com/dugsihub/dugsihub/backend/go-services/pkg/errors"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/logger"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/metrics"
)

// MaxInlineBytes keeps inline records under MongoDB's 16 MiB document limit.
const MaxInlineBytes int64 = 15 << 20

// Config tunes upload limits and storage mode.
type Config struct {
	MaxUploadBytes int64
	// Inline stores payloads up to InlineMaxBytes inside the record.
	Inline         bool
	InlineMaxBytes int64
	PageSize       int
	// DerivePageCount fills a missing pageCount from the PDF itself.
	DerivePageCount bool
}

// UploadInput is one parsed multipart upload.
type UploadInput struct {
	Subject     string
	PageCount   string
	DisplayName string
	FileName    string
	ContentType string
	Size        int64
	// File is nil when the request carried no file part.
	File io.ReadSeeker
}

// Download is an open payload ready to be streamed.
type Download struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	FileName    string
}

type uploadMeta struct {
	Subject   string `validate:"required,min=2,max=120"`
	PageCount *int   `validate:"omitempty,min=1,max=2000"`
}

// Service implements upload, retrieval, listing and deletion of papers.
type Service struct {
	repo     repository.Repository
	sink     storage.Sink
	validate *validator.Validate
	cfg      Config
	now      func() time.Time
}

// New wires a Service. sink may be nil only when cfg.Inline is set and every
// upload fits inline.
func New(repo repository.Repository, sink storage.Sink, validate *validator.Validate, cfg Config) *Service {
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 << 20
	}
	if cfg.InlineMaxBytes <= 0 || cfg.InlineMaxBytes > MaxInlineBytes {
		cfg.InlineMaxBytes = MaxInlineBytes
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 12
	}
	return &Service{repo: repo, sink: sink, validate: validate, cfg: cfg, now: time.Now}
}

// MaxUploadBytes returns the enforced upload bound.
func (s *Service) MaxUploadBytes() int64 { return s.cfg.MaxUploadBytes }

// Upload validates in and persists the bytes before the record.
func (s *Service) Upload(ctx context.Context, p *auth.Principal, in UploadInput) (*document.Document, error) {
	doc, err := s.upload(ctx, p, in)
	if err != nil {
		metrics.Uploads.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	metrics.Uploads.WithLabelValues("ok").Inc()
	metrics.UploadBytes.Observe(float64(doc.FileSize))
	return doc, nil
}

func (s *Service) upload(ctx context.Context, p *auth.Principal, in UploadInput) (*document.Document, error) {
	if p == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !p.Can(auth.CapUpload) {
		return nil, appErrors.ErrForbidden
	}

	meta, err := s.validateMeta(in)
	if err != nil {
		return nil, err
	}
	if in.File == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing file")
	}
	if in.ContentType != document.ContentTypePDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only PDF uploads allowed")
	}
	if in.Size > s.cfg.MaxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file too large: limit is %d bytes", s.cfg.MaxUploadBytes))
	}
	if in.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing file")
	}

	name := in.DisplayName
	if strings.TrimSpace(name) == "" {
		name = in.FileName
	}
	fileName := document.SanitizeFileName(name)

	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "upload aborted")
	}

	if meta.PageCount == nil && s.cfg.DerivePageCount {
		meta.PageCount = countPages(in.File)
	}
	if _, err := in.File.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err)
	}

	doc := &document.Document{
		Subject:     meta.Subject,
		FileName:    fileName,
		ContentType: document.ContentTypePDF,
		FileSize:    in.Size,
		PageCount:   meta.PageCount,
		OwnerID:     p.ID,
		CreatedAt:   s.now().UTC(),
	}

	if s.cfg.Inline && in.Size <= s.cfg.InlineMaxBytes {
		data, err := io.ReadAll(io.LimitReader(in.File, in.Size+1))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
		}
		if int64(len(data)) != in.Size {
			return nil, appErrors.Clone(appErrors.ErrValidation, "upload size mismatch")
		}
		doc.Payload = document.InlinePayload(data)
		return s.create(ctx, doc)
	}

	if s.sink == nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, errors.New("no blob sink configured"))
	}
	key := storage.NewKey(document.CategoryPapers, fileName, doc.CreatedAt)
	obj, err := s.sink.Put(ctx, key, in.File, in.Size, document.ContentTypePDF)
	if err != nil {
		logger.Errorf("upload: sink put %s failed: %v", key, err)
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.WrapAs(appErrors.ErrStorageWrite, err)
	}
	doc.Payload = document.RemotePayload(obj.Key, obj.URL)

	created, err := s.create(ctx, doc)
	if err != nil {
		s.compensate(ctx, obj.Key)
		return nil, err
	}
	return created, nil
}

func (s *Service) create(ctx context.Context, doc *document.Document) (*document.Document, error) {
	created, err := s.repo.Create(ctx, doc)
	if err != nil {
		logger.Errorf("upload: record create failed: %v", err)
		return nil, appErrors.WrapAs(appErrors.ErrPersistence, err)
	}
	logger.Infof("upload: stored document %s subject=%q size=%d owner=%s", created.ID, created.Subject, created.FileSize, created.OwnerID)
	return created, nil
}

// compensate removes a blob whose record was never written. It runs even
// when the request context is already done.
func (s *Service) compensate(ctx context.Context, key string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.sink.Delete(cctx, key); err != nil {
		metrics.OrphanBlobs.Inc()
		logger.Errorf("upload: orphan blob %s left behind: %v", key, err)
	}
}

func (s *Service) validateMeta(in UploadInput) (uploadMeta, error) {
	meta := uploadMeta{Subject: strings.TrimSpace(in.Subject)}
	if raw := strings.TrimSpace(in.PageCount); raw != "" {
		n, ok := parsePageCount(raw)
		if !ok {
			return meta, appErrors.Clone(appErrors.ErrValidation, "pageCount must be an integer")
		}
		meta.PageCount = &n
	}
	if err := s.validate.Struct(meta); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return meta, appErrors.Clone(appErrors.ErrValidation, describe(verrs[0]))
		}
		return meta, appErrors.WrapAs(appErrors.ErrValidation, err)
	}
	return meta, nil
}

// parsePageCount accepts any finite whole number, so "12", "12.0" and "1.2e1"
// are all 12. Magnitudes beyond int32 are clamped and left to the range rules.
func parsePageCount(raw string) (int, bool) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32, true
	case f < math.MinInt32:
		return math.MinInt32, true
	}
	return int(f), true
}

func describe(fe validator.FieldError) string {
	field := "subject"
	if fe.Field() == "PageCount" {
		field = "pageCount"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if field == "pageCount" {
			return field + " must be at least " + fe.Param()
		}
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		if field == "pageCount" {
			return field + " must be at most " + fe.Param()
		}
		return field + " must be at most " + fe.Param() + " characters"
	}
	return field + " is invalid"
}

// countPages is best effort; nil means the count could not be read.
func countPages(rs io.ReadSeeker) *int {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	n, err := api.PageCount(rs, model.NewDefaultConfiguration())
	if err != nil || n < 1 || n > 2000 {
		if err != nil {
			logger.Debugf("upload: page count unavailable: %v", err)
		}
		return nil
	}
	return &n
}

// Open resolves id to its stored bytes. Any principal holding read may open
// any document.
func (s *Service) Open(ctx context.Context, p *auth.Principal, id string) (*Download, error) {
	if p == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !p.Can(auth.CapRead) {
		return nil, appErrors.ErrForbidden
	}
	doc, err := s.get(ctx, id)
	if err != nil {
		metrics.Downloads.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	dl := &Download{Size: doc.FileSize, ContentType: doc.ContentType, FileName: doc.FileName}
	if doc.Payload.IsInline() {
		dl.Body = io.NopCloser(bytes.NewReader(doc.Payload.Data))
		dl.Size = int64(len(doc.Payload.Data))
		metrics.Downloads.WithLabelValues("ok").Inc()
		return dl, nil
	}
	if doc.Payload.Key == "" || s.sink == nil {
		return nil, s.payloadMissing(doc, errors.New("record has no resolvable payload"))
	}
	body, err := s.sink.Open(ctx, doc.Payload.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, s.payloadMissing(doc, err)
		}
		metrics.Downloads.WithLabelValues("error").Inc()
		return nil, err
	}
	dl.Body = body
	metrics.Downloads.WithLabelValues("ok").Inc()
	return dl, nil
}

func (s *Service) payloadMissing(doc *document.Document, cause error) error {
	metrics.PayloadMissing.Inc()
	metrics.Downloads.WithLabelValues("not_found").Inc()
	logger.Errorf("download: payload missing for document %s key=%q: %v", doc.ID, doc.Payload.Key, cause)
	return appErrors.WrapAs(appErrors.ErrPayloadMissing, cause)
}

// Get returns the record without its payload bytes.
func (s *Service) Get(ctx context.Context, p *auth.Principal, id string) (document.Summary, error) {
	if p == nil {
		return document.Summary{}, appErrors.ErrUnauthorized
	}
	if !p.Can(auth.CapRead) {
		return document.Summary{}, appErrors.ErrForbidden
	}
	doc, err := s.get(ctx, id)
	if err != nil {
		return document.Summary{}, err
	}
	return doc.Summarize(), nil
}

// List returns one page of summaries.
func (s *Service) List(ctx context.Context, p *auth.Principal, q document.ListQuery) (document.ListQuery, document.ListResult, error) {
	q = q.Normalize(s.cfg.PageSize)
	if p == nil {
		return q, document.ListResult{}, appErrors.ErrUnauthorized
	}
	if !p.Can(auth.CapRead) {
		return q, document.ListResult{}, appErrors.ErrForbidden
	}
	q.Subject = strings.TrimSpace(q.Subject)
	q.Q = strings.TrimSpace(q.Q)
	res, err := s.repo.List(ctx, q)
	if err != nil {
		logger.Errorf("list: %v", err)
		return q, document.ListResult{}, appErrors.WrapAs(appErrors.ErrPersistence, err)
	}
	return q, res, nil
}

// Delete tombstones the record, removes the blob, then removes the record.
// A blob delete failure leaves the tombstone in place so the record stays
// hidden and the delete can be retried.
func (s *Service) Delete(ctx context.Context, p *auth.Principal, id string) error {
	if p == nil {
		return appErrors.ErrUnauthorized
	}
	if !p.Can(auth.CapUpload) {
		return appErrors.ErrForbidden
	}
	doc, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.MarkDeleted(ctx, id, s.now().UTC()); err != nil {
		return mapRepoError(err)
	}
	if !doc.Payload.IsInline() && doc.Payload.Key != "" && s.sink != nil {
		if err := s.sink.Delete(ctx, doc.Payload.Key); err != nil {
			logger.Errorf("delete: blob %s for document %s: %v", doc.Payload.Key, id, err)
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	logger.Infof("delete: document %s removed by %s", id, p.ID)
	return nil
}

func (s *Service) get(ctx context.Context, id string) (*document.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.ErrNotFound
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return doc, nil
}

func mapRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.ErrNotFound
	}
	return appErrors.WrapAs(appErrors.ErrPersistence, err)
}

func resultLabel(err error) string {
	e := appErrors.FromError(err)
	switch {
	case e.Status >= 500:
		return "error"
	case e.Status == 404:
		return "not_found"
	case e.Status == 413:
		return "too_large"
	case e.Status == 401 || e.Status == 403:
		return "denied"
	default:
		return "invalid"
	}
}
