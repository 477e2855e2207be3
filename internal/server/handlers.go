package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inmovc/internal/analysis"
	"inmovc/internal/extraction"
	"inmovc/internal/logger"
	"inmovc/internal/store"
	"inmovc/internal/uploads"
	"inmovc/pkg/models"
)

// multipartOverhead allows for boundaries and headers around the file part.
const multipartOverhead = 1 << 20

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to InmoVC API",
		"version": Version,
		"endpoints": map[string]string{
			"upload":  "/api/upload",
			"analyze": "/api/analyze/{file_id}",
			"results": "/api/results/{file_id}",
			"health":  "/api/health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"version":   Version,
		"timestamp": float64(now.UnixNano()) / float64(time.Second),
	})
}

func (s *Server) handleLegacyHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logger.WithContext(r.Context())

	filename, data, ok := s.readPDFUpload(w, r)
	if !ok {
		return
	}

	name, err := uploads.SanitizeName(filename)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid file name")
		return
	}
	uploadTime := s.now()
	fileID := fmt.Sprintf("%d_%s", uploadTime.Unix(), name)

	pageCount, err := extraction.PageCount(data)
	if err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Msg("Could not count pages")
	}

	path, err := s.uploads.Save(r.Context(), fileID, bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, uploads.ErrExists) {
			writeErr(w, http.StatusConflict, "A file with this name was just uploaded, retry in a second")
			return
		}
		log.Error().Err(err).Str("file_id", fileID).Msg("Failed to save upload")
		writeErr(w, http.StatusInternalServerError, "Error uploading file: "+sanitizeError(err))
		return
	}

	record := &models.Record{
		ID:         fileID,
		Filename:   filename,
		UploadTime: uploadTime,
		Status:     models.StatusUploaded,
		FilePath:   path,
		PageCount:  pageCount,
	}
	if err := s.store.Put(r.Context(), record); err != nil {
		_ = s.uploads.Delete(r.Context(), path)
		log.Error().Err(err).Str("file_id", fileID).Msg("Failed to store record")
		writeErr(w, http.StatusInternalServerError, "Error uploading file: "+sanitizeError(err))
		return
	}

	log.Info().
		Str("file_id", fileID).
		Int("bytes", len(data)).
		Int("pages", pageCount).
		Msg("File uploaded")

	writeJSON(w, http.StatusOK, map[string]any{
		"file_id":  fileID,
		"filename": filename,
		"status":   models.StatusUploaded,
		"message":  "File uploaded successfully",
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.WithContext(ctx)
	fileID := r.PathValue("file_id")

	record, err := s.store.Get(ctx, fileID)
	if err != nil {
		s.writeLookupErr(w, err)
		return
	}

	record.Status = models.StatusProcessing
	record.Error = ""
	if err := s.store.Put(ctx, record); err != nil {
		writeErr(w, http.StatusInternalServerError, sanitizeError(err))
		return
	}

	results, err := s.analyzeRecord(ctx, record)
	if err != nil {
		record.Status = models.StatusFailed
		record.Error = sanitizeError(err)
		// The record update must survive a canceled request.
		if putErr := s.store.Put(context.WithoutCancel(ctx), record); putErr != nil {
			log.Error().Err(putErr).Str("file_id", fileID).Msg("Failed to store failed status")
		}
		log.Warn().Err(err).Str("file_id", fileID).Msg("Analysis failed")
		writeErr(w, statusFor(err), "Error analyzing file: "+record.Error)
		return
	}

	record.Status = models.StatusCompleted
	record.Results = results
	if err := s.store.Put(ctx, record); err != nil {
		writeErr(w, http.StatusInternalServerError, sanitizeError(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"file_id": fileID,
		"status":  models.StatusCompleted,
		"message": "Analysis completed successfully",
		"results": results,
	})
}

// analyzeRecord runs extraction then analysis on a stored upload.
func (s *Server) analyzeRecord(ctx context.Context, record *models.Record) (*models.ListingResults, error) {
	data, err := s.readUpload(ctx, record.FilePath)
	if err != nil {
		return nil, err
	}

	extracted, err := s.extractor.Extract(ctx, extraction.Document{Data: data, Filename: record.Filename})
	if err != nil {
		return nil, err
	}

	result, err := s.analyzer.Analyze(ctx, analysis.Request{
		ExtractedText: extracted.Text,
		Filename:      record.Filename,
	})
	if err != nil {
		return nil, err
	}

	return &models.ListingResults{
		Extraction: models.ExtractionSummary{
			Method:         string(extracted.Method),
			CharacterCount: extracted.CharacterCount,
			PageCount:      extracted.PageCount,
		},
		Analysis: result,
	}, nil
}

func (s *Server) readUpload(ctx context.Context, path string) ([]byte, error) {
	rc, err := s.uploads.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.Get(r.Context(), r.PathValue("file_id"))
	if err != nil {
		s.writeLookupErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, sanitizeError(err))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fileID := r.PathValue("file_id")

	record, err := s.store.Get(ctx, fileID)
	if err != nil {
		s.writeLookupErr(w, err)
		return
	}

	if record.FilePath != "" {
		if err := s.uploads.Delete(ctx, record.FilePath); err != nil {
			logger.WithContext(ctx).Warn().Err(err).Str("file_id", fileID).Msg("Failed to delete stored file")
		}
	}
	if err := s.store.Delete(ctx, fileID); err != nil {
		s.writeLookupErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Result deleted successfully"})
}

// handleProcessPDF extracts text from an uploaded PDF without storing it.
func (s *Server) handleProcessPDF(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readPDFUpload(w, r)
	if !ok {
		return
	}

	result, err := s.extractor.Extract(r.Context(), extraction.Document{Data: data, Filename: filename})
	if err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Str("filename", filename).Msg("Extraction failed")
		writeErr(w, statusFor(err), sanitizeError(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"extracted_text":  result.Text,
		"method":          result.Method,
		"character_count": result.CharacterCount,
	})
}

// readPDFUpload reads the multipart "file" field and checks that it is a PDF
// within the size limit. It writes the error response itself.
func (s *Server) readPDFUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxFileSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErr(w, http.StatusRequestEntityTooLarge, "File too large")
			return "", nil, false
		}
		writeErr(w, http.StatusBadRequest, "No file provided")
		return "", nil, false
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeErr(w, http.StatusBadRequest, "Only PDF files are allowed")
		return "", nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxFileSize+1))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "Failed to read file")
		return "", nil, false
	}
	if int64(len(data)) > s.opts.MaxFileSize {
		writeErr(w, http.StatusRequestEntityTooLarge, "File too large")
		return "", nil, false
	}
	if !extraction.HasPDFHeader(data) {
		writeErr(w, http.StatusBadRequest, "File is not a valid PDF")
		return "", nil, false
	}

	return header.Filename, data, true
}

func (s *Server) writeLookupErr(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "File not found")
		return
	}
	writeErr(w, http.StatusInternalServerError, sanitizeError(err))
}
