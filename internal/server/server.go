package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/audiolibrelab/recorderctl/internal/audio"
	"github.com/audiolibrelab/recorderctl/internal/config"
	"github.com/audiolibrelab/recorderctl/internal/service"
)

// Server represents the web server for remote control of the recorder
type Server struct {
	service    service.Service
	cfg        *config.Config
	configFile string
	port       string

	cfgMutex sync.RWMutex
}

// StatusResponse represents the JSON response for status endpoint
type StatusResponse struct {
	Status        string                   `json:"status"`
	Message       string                   `json:"message,omitempty"`
	PreparedPath  string                   `json:"prepared_path,omitempty"`
	LastError     string                   `json:"last_error,omitempty"`
	LastRecording *audio.RecordingMetadata `json:"last_recording,omitempty"`
	Options       config.Options           `json:"options"`
	ActiveProfile string                   `json:"active_profile"`
}

// New creates a new web server instance
func New(svc service.Service, cfg *config.Config, configFile, port string) *Server {
	return &Server{
		service:    svc,
		cfg:        cfg,
		configFile: configFile,
		port:       port,
	}
}

// Handler returns the routes of the remote control API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/prepare", s.handlePrepare)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/pause", s.handlePause)
	mux.HandleFunc("/resume", s.handleResume)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/destroy", s.handleDestroy)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/config/select", s.handleSelectProfile)
	mux.HandleFunc("/config/profiles", s.handleProfiles)
	mux.HandleFunc("/config/active", s.handleActiveProfile)
	mux.HandleFunc("/authorization", s.handleAuthorization)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	localIP := getLocalIP()

	slog.Info("Starting recorder web server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%s", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", s.port))

	return http.ListenAndServe(":"+s.port, s.Handler())
}

// handlePrepare prepares a recording (INITIAL -> PREPARED)
func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseForm(); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Failed to parse form", "operation", "prepare")
		return
	}

	path := r.FormValue("path")
	if path == "" {
		path = s.defaultRecordingName()
	}

	slog.Debug("Prepare request received", "path", path)
	resolved, err := s.service.Prepare(r.Context(), path)
	if err != nil {
		s.sendRecorderError(w, err, "path", path, "operation", "prepare")
		return
	}

	sendJSON(w, map[string]interface{}{
		"success": true,
		"message": "Recorder prepared",
		"path":    resolved,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	path, err := s.service.Start(r.Context())
	if err != nil {
		s.sendRecorderError(w, err, "operation", "start")
		return
	}

	sendJSON(w, map[string]interface{}{
		"success": true,
		"message": "Recording started",
		"path":    path,
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.service.Pause(r.Context()); err != nil {
		s.sendRecorderError(w, err, "operation", "pause")
		return
	}

	sendJSON(w, map[string]interface{}{
		"success": true,
		"message": "Recording paused",
	})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.service.Resume(r.Context()); err != nil {
		s.sendRecorderError(w, err, "operation", "resume")
		return
	}

	sendJSON(w, map[string]interface{}{
		"success": true,
		"message": "Recording resumed",
	})
}

// handleStop stops the current recording session and returns its metadata
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	meta, err := s.service.Stop(r.Context())
	if err != nil {
		s.sendRecorderError(w, err, "operation", "stop")
		return
	}

	sendJSON(w, map[string]interface{}{
		"success":   true,
		"message":   "Recording stopped",
		"recording": meta,
	})
}

func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.service.Destroy(r.Context()); err != nil {
		s.sendRecorderError(w, err, "operation", "destroy")
		return
	}

	sendJSON(w, map[string]interface{}{
		"success": true,
		"message": "Recorder destroyed",
	})
}

// handleStatus returns the current status and session info
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	status := s.service.GetStatus()

	s.cfgMutex.RLock()
	profile := s.cfg.Profile
	s.cfgMutex.RUnlock()

	sendJSON(w, StatusResponse{
		Status:        status.State.String(),
		Message:       generateStatusMessage(status),
		PreparedPath:  status.PreparedPath,
		LastError:     status.LastError,
		LastRecording: status.LastRecording,
		Options:       s.service.GetOptions(),
		ActiveProfile: profile,
	})
}

// handleConfig returns the pending options on GET and replaces them on POST.
// A POST body holds only the keys to override; everything else falls back to the defaults.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sendJSON(w, s.service.GetOptions())
	case http.MethodPost:
		var overrides config.Overrides
		if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
			s.sendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid options: %v", err), "operation", "config")
			return
		}
		opts := s.service.Configure(overrides)
		slog.Info("Recorder options updated", "sample_rate", opts.SampleRate, "channels", opts.Channels, "encoding", opts.AudioEncoding)
		sendJSON(w, map[string]interface{}{
			"success": true,
			"options": opts,
		})
	default:
		methodNotAllowed(w)
	}
}

// handleSelectProfile switches the active profile in the config file and applies its options
func (s *Server) handleSelectProfile(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Failed to parse form", "operation", "select_profile")
		return
	}

	profile := r.FormValue("profile")
	if profile == "" {
		s.sendErrorResponse(w, http.StatusBadRequest, "Profile name is required", "operation", "select_profile")
		return
	}
	if s.configFile == "" {
		s.sendErrorResponse(w, http.StatusConflict, "No config file in use", "operation", "select_profile")
		return
	}

	newCfg, err := config.LoadWithProfile(s.configFile, profile)
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("Failed to load profile '%s': %v", profile, err),
			"profile", profile, "operation", "select_profile")
		return
	}
	if err := os.MkdirAll(newCfg.Output.Directory, 0755); err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to create output directory: %v", err),
			"profile", profile, "directory", newCfg.Output.Directory, "operation", "select_profile")
		return
	}
	if err := config.UpdateActiveConfig(s.configFile, profile); err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to save active profile: %v", err),
			"profile", profile, "operation", "select_profile")
		return
	}

	s.cfgMutex.Lock()
	s.cfg = newCfg
	s.cfgMutex.Unlock()
	opts := s.service.Configure(newCfg.Recorder)

	slog.Info("Profile selected", "profile", profile)
	sendJSON(w, map[string]interface{}{
		"success": true,
		"profile": profile,
		"options": opts,
	})
}

// handleProfiles returns the profiles defined in the config file
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	profiles := []string{}
	if s.configFile != "" {
		names, err := config.ProfileNames(s.configFile)
		if err != nil {
			slog.Debug("Failed to read profiles", "error", err, "config_file", s.configFile)
		} else {
			profiles = names
		}
	}
	sendJSON(w, map[string]interface{}{
		"profiles": profiles,
	})
}

// handleActiveProfile returns the currently active profile
func (s *Server) handleActiveProfile(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	s.cfgMutex.RLock()
	profile := s.cfg.Profile
	s.cfgMutex.RUnlock()

	sendJSON(w, map[string]interface{}{
		"active_profile": profile,
		"success":        true,
	})
}

// handleAuthorization reports the permission state on GET and requests permission on POST
func (s *Server) handleAuthorization(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		status, err := s.service.AuthorizationStatus(r.Context())
		if err != nil {
			s.sendRecorderError(w, err, "operation", "check_authorization")
			return
		}
		sendJSON(w, map[string]interface{}{"status": status})
	case http.MethodPost:
		granted, err := s.service.RequestAuthorization(r.Context())
		if err != nil {
			s.sendRecorderError(w, err, "operation", "request_authorization")
			return
		}
		sendJSON(w, map[string]interface{}{"granted": granted})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) defaultRecordingName() string {
	s.cfgMutex.RLock()
	defer s.cfgMutex.RUnlock()
	return s.cfg.NewRecordingPath()
}

func generateStatusMessage(status service.Status) string {
	switch status.State {
	case audio.StateInitial:
		if status.LastError != "" {
			return status.LastError
		}
		return "Recorder idle"
	case audio.StatePrepared:
		return fmt.Sprintf("Ready to record to %s", status.PreparedPath)
	case audio.StateRecording:
		return fmt.Sprintf("Recording to %s", status.PreparedPath)
	case audio.StatePaused:
		return fmt.Sprintf("Recording to %s paused", status.PreparedPath)
	default:
		return ""
	}
}

// sendRecorderError maps recorder errors to HTTP status codes and a {code, message} body
func (s *Server) sendRecorderError(w http.ResponseWriter, err error, logContext ...interface{}) {
	var recErr *audio.Error
	if !errors.As(err, &recErr) {
		s.sendErrorResponse(w, http.StatusBadGateway, err.Error(), logContext...)
		return
	}

	statusCode := http.StatusBadGateway
	switch recErr.Code {
	case audio.CodeInvalidState, audio.CodeRecorderNotPrepared:
		statusCode = http.StatusConflict
	case audio.CodeMethodNotAvailable:
		statusCode = http.StatusNotImplemented
	}

	slog.Error("Recorder operation failed", append([]interface{}{"code", recErr.Code, "message", recErr.Message, "status_code", statusCode}, logContext...)...)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"code":    recErr.Code,
		"message": recErr.Message,
	})
}

// sendErrorResponse logs the error and sends a JSON error response to the client
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string, logContext ...interface{}) {
	logFields := []interface{}{"error_message", errorMsg, "status_code", statusCode}
	if len(logContext) > 0 {
		logFields = append(logFields, logContext...)
	}
	slog.Error("Sending error response to client", logFields...)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   errorMsg,
	})
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		methodNotAllowed(w)
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   "Method not allowed",
	})
}

func sendJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func getLocalIP() string {
	// Try to connect to a remote address to determine local IP
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
