package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (s *Server) HandleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if !s.allowedExtension(header.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type. Only PDF files are allowed."})
		return
	}
	if err := validatePDFFile(file, header, s.cfg.MaxFileSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ensureTempDir(s.cfg.TempDir); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create temp directory"})
		return
	}

	id := generateUniqueID()
	inPath := filepath.Join(s.cfg.TempDir, "input_"+id+".pdf")
	outPath := filepath.Join(s.cfg.TempDir, "output_"+id+s.cfg.OutputSuffix+".pdf")

	out, err := os.Create(inPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}
	_, err = out.ReadFrom(file)
	out.Close()
	if err != nil {
		os.Remove(inPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	safeName := sanitizeFilename(header.Filename)
	s.jobs.add(id, safeName)
	s.log.WithFields(logrus.Fields{
		"job":      id,
		"filename": safeName,
		"size":     header.Size,
	}).Info("upload accepted")

	go s.process(id, inPath, outPath)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     id,
		"filename":   safeName,
		"status_url": "/job/" + id,
	})
}

// process runs removal in the background, feeding progress into the job
// registry. The uploaded input is deleted once processing ends; the output
// stays until the janitor expires the job.
func (s *Server) process(id, inPath, outPath string) {
	res, err := s.remover.RemoveFile(context.Background(), inPath, outPath, func(status string, progress float64) {
		s.jobs.setProgress(id, status, progress)
	})
	os.Remove(inPath)

	if err != nil {
		s.log.WithFields(logrus.Fields{"job": id, "error": err}).Error("processing failed")
		s.jobs.fail(id, err)
		return
	}
	s.jobs.finish(id, res, outPath)
}

func (s *Server) HandleJobStatus(c *gin.Context) {
	job, ok := s.jobs.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) HandleDownload(c *gin.Context) {
	job, ok := s.jobs.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if job.State == JobProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "Job still processing"})
		return
	}
	if job.State == JobFailed {
		c.JSON(http.StatusConflict, gin.H{"error": "Job failed: " + job.Error})
		return
	}
	if job.outputPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Processed file not found"})
		return
	}
	if _, err := os.Stat(job.outputPath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Processed file not found"})
		return
	}

	filename := "document" + s.cfg.OutputSuffix + ".pdf"
	if job.Filename != "" {
		name := job.Filename
		if strings.HasSuffix(strings.ToLower(name), ".pdf") {
			name = name[:len(name)-4]
		}
		filename = sanitizeFilename(name + s.cfg.OutputSuffix + ".pdf")
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.File(job.outputPath)
}

func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range s.cfg.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ensureTempDir creates the temp directory if it doesn't exist
func ensureTempDir(tempDir string) error {
	return os.MkdirAll(tempDir, DefaultFilePermissions)
}

// sanitizeFilename removes path traversal attempts and dangerous characters
func sanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")

	filename = filepath.Base(filename)
	filename = strings.TrimSpace(filename)

	if filename == "" {
		filename = "document.pdf"
	}
	return filename
}

// generateUniqueID generates a unique identifier for jobs and temp files
func generateUniqueID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%d_%s", time.Now().UnixNano(), hex.EncodeToString(b))
}

// validatePDFFile checks the size cap and the PDF header magic
func validatePDFFile(file multipart.File, header *multipart.FileHeader, maxSize int64) error {
	if header.Size > maxSize {
		return fmt.Errorf("file size %d exceeds maximum allowed %d bytes", header.Size, maxSize)
	}

	buffer := make([]byte, 4)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file header: %v", err)
	}
	if n < 4 || string(buffer[:4]) != "%PDF" {
		return fmt.Errorf("invalid PDF file: header does not match")
	}

	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to reset file position: %v", err)
	}
	return nil
}
