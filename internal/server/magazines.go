package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/domain"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/usecase"
)

// handleUpload accepts a single multipart PDF, saves it to a scoped temp
// file and runs the processing pipeline synchronously. Input errors are
// rejected before any record is created.
func (s *Server) handleUpload(c *gin.Context) {
	// backstop against grossly oversized bodies; the precise limit is
	// enforced on the parsed file size below
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes()+(10<<20))

	file, hdr, err := c.Request.FormFile("pdf")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.badRequest(c, fmt.Sprintf("File too large. Maximum size is %dMB.", s.cfg.MaxUploadMB))
			return
		}
		s.badRequest(c, "No PDF file uploaded")
		return
	}
	defer file.Close()

	if !isPDF(hdr.Header.Get("Content-Type")) {
		s.badRequest(c, "Only PDF files are allowed")
		return
	}
	if hdr.Size > s.cfg.MaxUploadBytes() {
		s.badRequest(c, fmt.Sprintf("File too large. Maximum size is %dMB.", s.cfg.MaxUploadMB))
		return
	}

	tmpPath, err := s.saveTemp(file)
	if err != nil {
		s.log.Error("temp save failed", "error", err)
		s.serverError(c, "Could not store uploaded file")
		return
	}

	m, err := s.magazines.Upload(c.Request.Context(), tmpPath, filepath.Base(hdr.Filename))
	if err != nil {
		msg := "Failed to process PDF"
		if m != nil && m.ErrorMessage != "" {
			msg = m.ErrorMessage
		}
		var br usecase.ErrBadRequest
		if errors.As(err, &br) || errors.Is(err, domain.ErrDuplicate) {
			s.badRequest(c, err.Error())
			return
		}
		s.serverError(c, msg)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": m})
}

func (s *Server) handleGetByID(c *gin.Context) {
	m, err := s.magazines.GetByID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": m})
}

func (s *Server) handleGetByShareID(c *gin.Context) {
	m, err := s.magazines.GetByShareToken(c.Param("shareId"))
	if err != nil {
		var nr *usecase.NotReadyError
		if errors.As(err, &nr) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Magazine is still processing",
				"status":  nr.Status,
			})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": m})
}

func (s *Server) handleStatus(c *gin.Context) {
	info, err := s.magazines.Status(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
}

type updateReq struct {
	Name   *string                 `json:"name"`
	Config *domain.FlipConfigPatch `json:"config"`
}

func (s *Server) handleUpdate(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid json body")
		return
	}
	m, err := s.magazines.Update(c.Param("id"), req.Name, req.Config)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": m})
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.magazines.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Magazine deleted successfully"})
}

func (s *Server) handleList(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	items, pg := s.magazines.List(page, limit)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       items,
		"pagination": pg,
	})
}

// saveTemp streams the upload into the uploads dir under a unique name.
func (s *Server) saveTemp(src io.Reader) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadsDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.cfg.UploadsDir, randomID()+".pdf")
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func isPDF(contentType string) bool {
	ct := strings.TrimSpace(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.EqualFold(ct, "application/pdf")
}

func (s *Server) fail(c *gin.Context, err error) {
	var nf usecase.ErrNotFound
	if errors.As(err, &nf) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Magazine not found"})
		return
	}
	var br usecase.ErrBadRequest
	if errors.As(err, &br) || errors.Is(err, domain.ErrDuplicate) {
		s.badRequest(c, err.Error())
		return
	}
	s.log.Error("request failed", "path", c.Request.URL.Path, "error", err)
	s.serverError(c, "Internal Server Error")
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func (s *Server) serverError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msg})
}
