package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/domain"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/infrastructure/cloudinary"
)

// Pipeline step errors, distinguishable with errors.Is so the API layer can
// report step-specific messages.
var (
	ErrNoFile        = errors.New("no pdf file uploaded")
	ErrPdfRead       = errors.New("failed to read pdf")
	ErrHostingUpload = errors.New("failed to upload pdf to hosting")
)

type MagazineRepo interface {
	Put(*domain.Magazine) error
	Get(id string) (*domain.Magazine, bool)
	GetByShareToken(token string) (*domain.Magazine, bool)
	Delete(id string) bool
	List(status domain.Status, page, limit int) ([]domain.Magazine, int)
}

type HostingClient interface {
	UploadOriginal(ctx context.Context, filePath, folder string) (cloudinary.UploadResult, error)
	PageImageURL(publicID string, pageNumber int, opts cloudinary.PageImageOptions) string
	DeleteOriginal(ctx context.Context, publicID string) (bool, error)
}

type PageCounter interface {
	PageCount(filePath string) (int, error)
}

type MagazineService struct {
	Repo          MagazineRepo
	Hosting       HostingClient
	PDF           PageCounter
	PublicBaseURL string
	Log           *slog.Logger
}

var defaultPageImage = cloudinary.PageImageOptions{
	Width:   1200,
	Height:  1600,
	Quality: "auto",
	Format:  "jpg",
}

// Upload runs the processing pipeline for one submitted PDF. The temp file
// at filePath is removed on every exit path. Steps run strictly in order;
// once the record exists, a step failure marks it failed and stops.
//
// When the returned error wraps ErrPdfRead or ErrHostingUpload the returned
// magazine is the failed record; a nil magazine means no record was created.
func (s *MagazineService) Upload(ctx context.Context, filePath, originalFilename string) (*domain.Magazine, error) {
	defer func() {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			s.logger().Warn("temp file cleanup failed", "path", filePath, "error", err)
		}
	}()

	token, err := s.freshShareToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &domain.Magazine{
		ID:         uuid.NewString(),
		ShareToken: token,
		Name:       nameFromFilename(originalFilename),
		Pages:      []domain.Page{},
		Config:     domain.DefaultFlipConfig(),
		Status:     domain.StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.Put(m); err != nil {
		return nil, err
	}
	s.logger().Info("processing pdf", "magazineId", m.ID, "file", originalFilename)

	count, err := s.PDF.PageCount(filePath)
	if err != nil {
		return s.fail(m, ErrPdfRead, "Failed to read PDF: "+err.Error())
	}
	m.TotalPages = count
	s.logger().Info("page count read", "magazineId", m.ID, "pages", count)

	up, err := s.Hosting.UploadOriginal(ctx, filePath, "flipbook/"+m.ID)
	if err != nil {
		return s.fail(m, ErrHostingUpload, "Failed to upload PDF: "+err.Error())
	}
	m.PdfURL = up.URL
	m.PdfPublicID = up.PublicID

	pages := make([]domain.Page, 0, count)
	for i := 1; i <= count; i++ {
		pages = append(pages, domain.Page{
			PageNumber: i,
			ImageURL:   s.Hosting.PageImageURL(up.PublicID, i, defaultPageImage),
			PublicID:   fmt.Sprintf("%s_page_%d", up.PublicID, i),
			Width:      defaultPageImage.Width,
			Height:     defaultPageImage.Height,
		})
	}
	m.Pages = pages
	m.Status = domain.StatusReady
	m.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Put(m); err != nil {
		return nil, err
	}
	s.logger().Info("magazine ready", "magazineId", m.ID, "shareId", m.ShareToken)
	return s.withShareURL(m), nil
}

func (s *MagazineService) fail(m *domain.Magazine, step error, msg string) (*domain.Magazine, error) {
	m.Status = domain.StatusFailed
	m.ErrorMessage = msg
	m.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Put(m); err != nil {
		s.logger().Error("could not persist failed status", "magazineId", m.ID, "error", err)
	}
	s.logger().Error("pipeline step failed", "magazineId", m.ID, "error", msg)
	return m, fmt.Errorf("%w: %s", step, msg)
}

func (s *MagazineService) GetByID(id string) (*domain.Magazine, error) {
	m, ok := s.Repo.Get(id)
	if !ok {
		return nil, ErrNotFound("magazine")
	}
	return s.withShareURL(m), nil
}

// NotReadyError reports a share lookup against a record that exists but is
// not servable; carries the status so the API can hint at it.
type NotReadyError struct {
	Status domain.Status
}

func (e *NotReadyError) Error() string { return "magazine is still processing" }

// GetByShareToken resolves a public share link. Records that are not ready
// are never partially visible: anything but StatusReady yields an error.
func (s *MagazineService) GetByShareToken(token string) (*domain.Magazine, error) {
	m, ok := s.Repo.GetByShareToken(token)
	if !ok {
		return nil, ErrNotFound("magazine")
	}
	if m.Status != domain.StatusReady {
		return nil, &NotReadyError{Status: m.Status}
	}
	return s.withShareURL(m), nil
}

// Update changes the display name and/or merges a partial config. Pages,
// status and totalPages are never touched here.
func (s *MagazineService) Update(id string, name *string, patch *domain.FlipConfigPatch) (*domain.Magazine, error) {
	m, ok := s.Repo.Get(id)
	if !ok {
		return nil, ErrNotFound("magazine")
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, ErrBadRequest("name cannot be empty")
		}
		m.Name = trimmed
	}
	if patch != nil {
		merged := domain.MergeFlipConfig(m.Config, *patch)
		if err := merged.Validate(); err != nil {
			return nil, ErrBadRequest(err.Error())
		}
		m.Config = merged
	}
	m.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Put(m); err != nil {
		return nil, err
	}
	return s.withShareURL(m), nil
}

// Delete removes the record and asks the hosting provider to release the
// stored original. Page-image URLs are transformations of that original and
// are not separately stored, so nothing else is deleted.
func (s *MagazineService) Delete(ctx context.Context, id string) error {
	m, ok := s.Repo.Get(id)
	if !ok {
		return ErrNotFound("magazine")
	}
	if m.PdfPublicID != "" {
		ok, err := s.Hosting.DeleteOriginal(ctx, m.PdfPublicID)
		if err != nil {
			s.logger().Warn("hosting delete failed", "magazineId", m.ID, "publicId", m.PdfPublicID, "error", err)
		} else if !ok {
			s.logger().Warn("hosting reports original already gone", "magazineId", m.ID, "publicId", m.PdfPublicID)
		}
	}
	s.Repo.Delete(id)
	s.logger().Info("magazine deleted", "magazineId", m.ID)
	return nil
}

// ListItem is the trimmed projection returned by List: no pages, just the
// denormalized first-page thumbnail.
type ListItem struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	ShareToken      string    `json:"shareId"`
	TotalPages      int       `json:"totalPages"`
	Thumbnail       string    `json:"thumbnail,omitempty"`
	BackgroundColor string    `json:"backgroundColor"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasMore bool `json:"hasMore"`
}

// List returns ready magazines, newest first.
func (s *MagazineService) List(page, limit int) ([]ListItem, Pagination) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	mags, total := s.Repo.List(domain.StatusReady, page, limit)
	items := make([]ListItem, 0, len(mags))
	for _, m := range mags {
		item := ListItem{
			ID:              m.ID,
			Name:            m.Name,
			ShareToken:      m.ShareToken,
			TotalPages:      m.TotalPages,
			BackgroundColor: m.Config.BackgroundColor,
			CreatedAt:       m.CreatedAt,
			UpdatedAt:       m.UpdatedAt,
		}
		if len(m.Pages) > 0 {
			item.Thumbnail = m.Pages[0].ImageURL
		}
		items = append(items, item)
	}
	pages := (total + limit - 1) / limit
	return items, Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   pages,
		HasMore: page*limit < total,
	}
}

// StatusInfo is the polling projection of a record.
type StatusInfo struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ShareToken   string        `json:"shareId"`
	Status       domain.Status `json:"status"`
	TotalPages   int           `json:"totalPages"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}

func (s *MagazineService) Status(id string) (StatusInfo, error) {
	m, ok := s.Repo.Get(id)
	if !ok {
		return StatusInfo{}, ErrNotFound("magazine")
	}
	return StatusInfo{
		ID:           m.ID,
		Name:         m.Name,
		ShareToken:   m.ShareToken,
		Status:       m.Status,
		TotalPages:   m.TotalPages,
		ErrorMessage: m.ErrorMessage,
	}, nil
}

const shareTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
const shareTokenLength = 10

func newShareToken() (string, error) {
	b := make([]byte, shareTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = shareTokenAlphabet[b[i]&63]
	}
	return string(b), nil
}

// freshShareToken retries on the unlikely collision; the store's unique
// constraint is the backstop for races between check and put.
func (s *MagazineService) freshShareToken() (string, error) {
	for i := 0; i < 5; i++ {
		token, err := newShareToken()
		if err != nil {
			return "", err
		}
		if _, exists := s.Repo.GetByShareToken(token); !exists {
			return token, nil
		}
	}
	return "", errors.New("could not allocate a unique share token")
}

func nameFromFilename(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i > 0 {
		return filename[:i]
	}
	return filename
}

func (s *MagazineService) withShareURL(m *domain.Magazine) *domain.Magazine {
	if s.PublicBaseURL != "" {
		m.ShareURL = strings.TrimRight(s.PublicBaseURL, "/") + "/view/" + m.ShareToken
	}
	return m
}

func (s *MagazineService) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrBadRequest string

func (e ErrBadRequest) Error() string { return string(e) }
