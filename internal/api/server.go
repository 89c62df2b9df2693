// Package api serves the HTTP surface outside the websocket: the teacher's
// prompt bank CRUD and the health endpoint. Identity comes from the same
// verifier the websocket upgrade uses.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"thoughtswap/pkg/interfaces"
	"thoughtswap/pkg/types"
)

// Authenticator matches the websocket handler's identity dependency.
type Authenticator interface {
	Authenticate(r *http.Request) (types.Identity, error)
}

// Server handles prompt bank and health requests.
type Server struct {
	store  interfaces.PromptStore
	auth   Authenticator
	router *http.ServeMux
}

// NewServer wires routes onto a fresh mux.
func NewServer(store interfaces.PromptStore, auth Authenticator) *Server {
	s := &Server{
		store:  store,
		auth:   auth,
		router: http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/prompts", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handlePrompts))))
	s.router.Handle("/api/prompts/", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handlePromptByID))))
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	teacher, ok := s.requireTeacher(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.listPrompts(w, r, teacher)
	case http.MethodPost:
		s.savePrompt(w, r, teacher)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePromptByID(w http.ResponseWriter, r *http.Request) {
	teacher, ok := s.requireTeacher(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/prompts/")
	if id == "" || strings.Contains(id, "/") {
		s.sendError(w, "Invalid prompt ID", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodDelete {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.deletePrompt(w, r, teacher, id)
}

func (s *Server) listPrompts(w http.ResponseWriter, r *http.Request, teacher types.Identity) {
	prompts, err := s.store.ListPrompts(r.Context(), teacher.Email)
	if err != nil {
		log.Printf("Failed to list prompts: %v", err)
		s.sendError(w, "Failed to list prompts", http.StatusInternalServerError)
		return
	}
	if prompts == nil {
		prompts = []*types.SavedPrompt{}
	}
	s.sendJSON(w, http.StatusOK, map[string]interface{}{"prompts": prompts})
}

func (s *Server) savePrompt(w http.ResponseWriter, r *http.Request, teacher types.Identity) {
	var req struct {
		Content string   `json:"content"`
		Type    string   `json:"type"`
		Options []string `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Reuse the broadcast validation so the bank never stores a prompt the
	// composer would reject.
	prompt := types.Prompt{Content: req.Content, Type: req.Type, Options: req.Options}
	if err := prompt.Validate(); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	saved := &types.SavedPrompt{
		TeacherEmail: teacher.Email,
		Content:      prompt.Content,
		Type:         prompt.Type,
		Options:      prompt.Options,
	}
	if err := s.store.SavePrompt(r.Context(), saved); err != nil {
		log.Printf("Failed to save prompt: %v", err)
		s.sendError(w, "Failed to save prompt", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusCreated, saved)
}

func (s *Server) deletePrompt(w http.ResponseWriter, r *http.Request, teacher types.Identity, id string) {
	err := s.store.DeletePrompt(r.Context(), teacher.Email, id)
	if errors.Is(err, interfaces.ErrPromptNotFound) {
		s.sendError(w, "Prompt not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Failed to delete prompt: %v", err)
		s.sendError(w, "Failed to delete prompt", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status := "healthy"
	code := http.StatusOK
	if err := s.store.HealthCheck(r.Context()); err != nil {
		log.Printf("Health check failed: %v", err)
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	s.sendJSON(w, code, map[string]string{"status": status})
}

// requireTeacher authenticates the request and rejects non-teachers. The
// bank is teacher-owned; students have no HTTP surface.
func (s *Server) requireTeacher(w http.ResponseWriter, r *http.Request) (types.Identity, bool) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return types.Identity{}, false
	}
	id, err := s.auth.Authenticate(r)
	if err != nil {
		s.sendError(w, "Authentication required", http.StatusUnauthorized)
		return types.Identity{}, false
	}
	if id.Role != types.RoleTeacher {
		s.sendError(w, "Teacher role required", http.StatusForbidden)
		return types.Identity{}, false
	}
	return id, true
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v interface{}) {
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSON(w, code, map[string]string{"error": message})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
