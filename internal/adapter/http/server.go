package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/emi-ran/video-downloader-bot/internal/domain"
)

// Server is the thin HTTP front-end over the pipeline service.
type Server struct {
	svc     *domain.PipelineService
	catalog domain.StreamCatalog
	ttl     time.Duration
	mux     *http.ServeMux
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(svc *domain.PipelineService, catalog domain.StreamCatalog, ttl time.Duration, addr string) *Server {
	s := &Server{
		svc:     svc,
		catalog: catalog,
		ttl:     ttl,
		mux:     http.NewServeMux(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/process", s.handleProcess)
	s.mux.HandleFunc("POST /api/convert", s.handleConvert)
	s.mux.HandleFunc("POST /api/cut", s.handleCut)
	s.mux.HandleFunc("GET /download/{id}", s.handleDownload)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

type processRequest struct {
	URL string `json:"url"`
}

type renditionResponse struct {
	Index       int     `json:"index"`
	Resolution  string  `json:"resolution,omitempty"`
	FPS         int     `json:"fps,omitempty"`
	BitrateKbps int     `json:"bitrate_kbps,omitempty"`
	Progressive bool    `json:"is_progressive"`
	SizeMB      float64 `json:"size_mb,omitempty"`
}

type processResponse struct {
	Platform     string              `json:"platform"`
	Title        string              `json:"title,omitempty"`
	ThumbnailURL string              `json:"thumbnail_url,omitempty"`
	VideoStreams []renditionResponse `json:"video_streams,omitempty"`
	AudioStreams []renditionResponse `json:"audio_streams,omitempty"`
}

type convertRequest struct {
	URL        string `json:"url"`
	VideoIndex int    `json:"video_index"`
	AudioIndex int    `json:"audio_index"`
	AudioOnly  bool   `json:"audio_only"`
}

type convertResponse struct {
	ID          string `json:"id"`
	DownloadURL string `json:"download_url"`
	ExpiresIn   int64  `json:"expires_in_seconds"`
}

type cutRequest struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// errorResponse is the JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	platform, err := domain.DetectPlatform(req.URL)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := processResponse{Platform: string(platform)}
	if platform == domain.PlatformYouTube {
		title, thumbnail, err := s.catalog.Probe(r.Context(), req.URL)
		if err != nil {
			s.writeDomainError(w, domain.WrapError(domain.KindCatalog, "probe", err))
			return
		}
		videos, err := s.catalog.VideoStreams(r.Context(), req.URL)
		if err != nil {
			s.writeDomainError(w, domain.WrapError(domain.KindCatalog, "list video streams", err))
			return
		}
		audios, err := s.catalog.AudioStreams(r.Context(), req.URL)
		if err != nil {
			s.writeDomainError(w, domain.WrapError(domain.KindCatalog, "list audio streams", err))
			return
		}
		resp.Title = title
		resp.ThumbnailURL = thumbnail
		resp.VideoStreams = toRenditionResponses(videos)
		resp.AudioStreams = toRenditionResponses(audios)
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	platform, err := domain.DetectPlatform(req.URL)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dr := domain.DownloadRequest{
		URL:          req.URL,
		Platform:     platform,
		VideoIndex:   req.VideoIndex,
		AudioIndex:   req.AudioIndex,
		AudioOnlyMP3: req.AudioOnly,
	}

	var id string
	if req.AudioOnly {
		id, err = s.svc.DownloadAudio(r.Context(), dr)
	} else {
		id, err = s.svc.Download(r.Context(), dr)
	}
	if err != nil {
		logrus.WithError(err).WithField("url", req.URL).Warn("convert failed")
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, convertResponse{
		ID:          id,
		DownloadURL: s.downloadURL(r, id),
		ExpiresIn:   int64(s.ttl.Seconds()),
	})
}

func (s *Server) handleCut(w http.ResponseWriter, r *http.Request) {
	var req cutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	id, err := s.svc.Cut(r.Context(), req.ID, req.Start, req.End)
	if err != nil {
		logrus.WithError(err).WithField("id", req.ID).Warn("cut failed")
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, convertResponse{
		ID:          id,
		DownloadURL: s.downloadURL(r, id),
		ExpiresIn:   int64(s.ttl.Seconds()),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	path, _, ok := s.svc.Resolve(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "file not found or expired")
		return
	}

	s.svc.RecordAccess(id)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) downloadURL(r *http.Request, id string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/download/" + id
}

func toRenditionResponses(renditions []domain.Rendition) []renditionResponse {
	out := make([]renditionResponse, 0, len(renditions))
	for _, r := range renditions {
		out = append(out, renditionResponse{
			Index:       r.Index,
			Resolution:  r.Resolution,
			FPS:         r.FPS,
			BitrateKbps: r.BitrateKbps,
			Progressive: r.Progressive,
			SizeMB:      float64(r.SizeBytes) / (1024 * 1024),
		})
	}
	return out
}

// writeDomainError maps the error taxonomy to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	switch de.Kind {
	case domain.KindInvalidSelection:
		s.writeError(w, http.StatusBadRequest, de.Error())
	case domain.KindNotFound:
		s.writeError(w, http.StatusNotFound, de.Error())
	case domain.KindCatalog, domain.KindFetchFailed:
		s.writeError(w, http.StatusBadGateway, de.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, de.Error())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
