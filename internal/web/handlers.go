package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/mrz-scanner/internal/mrz"
	"github.com/zombor/mrz-scanner/internal/scanner"
)

// maxUploadSize bounds multipart uploads; phone photos run large.
const maxUploadSize = int64(50 << 20) // 50MB

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// handleUploadScan runs one upload-only scan session over the posted file
// and persists the outcome.
func (s *Server) handleUploadScan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeJSONError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB.")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	result, err := s.host.ScanImage(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, scanner.ErrScanInFlight) {
			writeJSONError(w, http.StatusConflict, "A scan is already in progress. Please retry.")
			return
		}
		slog.Error("Scan session rejected", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Scanner is unavailable")
		return
	}

	record, err := s.history.RecordResult(result)
	if err != nil {
		slog.Error("Error recording scan", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Error saving scan")
		return
	}

	code := http.StatusOK
	if result.Status != scanner.StatusSuccess {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, record)
}

// handleListScans returns all recorded scans
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	records, err := s.history.ListScans()
	if err != nil {
		slog.Error("Error listing scans", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleGetScan returns a single scan record
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	record, err := s.history.GetScan(r.PathValue("id"))
	if err != nil {
		corsError(w, "Scan not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleGetScanFrame serves the captured frame for a scan
func (s *Server) handleGetScanFrame(w http.ResponseWriter, r *http.Request) {
	data, err := s.history.GetFrame(r.PathValue("id"))
	if err != nil {
		corsError(w, "Frame not found", http.StatusNotFound)
		return
	}
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// handleDeleteScan removes a scan record and its frame
func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	if err := s.history.DeleteScan(r.PathValue("id")); err != nil {
		corsError(w, "Scan not found", http.StatusNotFound)
		return
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleFieldLabels serves the static display-label tables the result view
// renders with.
func (s *Server) handleFieldLabels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fields":         mrz.FieldLabels,
		"document_types": mrz.DocumentTypeLabels,
	})
}

// handleModes reports the active scan mode and enabled document types
func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	modes := s.host.Modes()
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":    modes.Mode(),
		"enabled": modes.EnabledTypes(),
	})
}
