package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"thoughtswap/pkg/interfaces"
	"thoughtswap/pkg/types"
)

// fakeStore is an in-memory PromptStore.
type fakeStore struct {
	prompts map[string]*types.SavedPrompt
	nextID  int
	healthy bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{prompts: make(map[string]*types.SavedPrompt), healthy: true}
}

func (f *fakeStore) SavePrompt(_ context.Context, p *types.SavedPrompt) error {
	if p.ID == "" {
		f.nextID++
		p.ID = fmt.Sprintf("p%d", f.nextID)
	}
	f.prompts[p.ID] = p
	return nil
}

func (f *fakeStore) ListPrompts(_ context.Context, teacherEmail string) ([]*types.SavedPrompt, error) {
	var out []*types.SavedPrompt
	for _, p := range f.prompts {
		if p.TeacherEmail == teacherEmail {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) DeletePrompt(_ context.Context, teacherEmail, id string) error {
	p, ok := f.prompts[id]
	if !ok || p.TeacherEmail != teacherEmail {
		return interfaces.ErrPromptNotFound
	}
	delete(f.prompts, id)
	return nil
}

func (f *fakeStore) HealthCheck(context.Context) error {
	if !f.healthy {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakeAuth maps bearer tokens to identities.
type fakeAuth struct {
	identities map[string]types.Identity
}

func (a *fakeAuth) Authenticate(r *http.Request) (types.Identity, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if id, ok := a.identities[token]; ok {
		return id, nil
	}
	return types.Identity{}, http.ErrNoCookie
}

func newTestServer() (*Server, *fakeStore) {
	store := newFakeStore()
	auth := &fakeAuth{identities: map[string]types.Identity{
		"teacher-token": {Name: "Dr. Lee", Email: "lee@school.edu", Role: types.RoleTeacher},
		"student-token": {Name: "Sam", Email: "sam@school.edu", Role: types.RoleStudent},
	}}
	return NewServer(store, auth), store
}

func doRequest(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	r := httptest.NewRequest(method, path, reader)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, r)
	return w
}

func TestSaveAndListPrompts(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodPost, "/api/prompts", "teacher-token",
		`{"content": "What surprised you?", "type": "TEXT"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body = %s", w.Code, w.Body.String())
	}
	var saved types.SavedPrompt
	if err := json.Unmarshal(w.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if saved.ID == "" {
		t.Error("saved prompt has no ID")
	}

	w = doRequest(s, http.MethodGet, "/api/prompts", "teacher-token", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	var list struct {
		Prompts []*types.SavedPrompt `json:"prompts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Prompts) != 1 || list.Prompts[0].Content != "What surprised you?" {
		t.Errorf("list = %+v", list.Prompts)
	}
}

func TestSavePrompt_Validation(t *testing.T) {
	s, _ := newTestServer()

	tests := []struct {
		name string
		body string
	}{
		{"empty content", `{"content": "", "type": "TEXT"}`},
		{"MC with one option", `{"content": "Pick", "type": "MC", "options": ["only"]}`},
		{"malformed JSON", `{"content":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, http.MethodPost, "/api/prompts", "teacher-token", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestDeletePrompt(t *testing.T) {
	s, store := newTestServer()
	p := &types.SavedPrompt{TeacherEmail: "lee@school.edu", Content: "x", Type: types.PromptTypeText}
	if err := store.SavePrompt(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	w := doRequest(s, http.MethodDelete, "/api/prompts/"+p.ID, "teacher-token", "")
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", w.Code)
	}
	w = doRequest(s, http.MethodDelete, "/api/prompts/"+p.ID, "teacher-token", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", w.Code)
	}
}

func TestAuthz(t *testing.T) {
	s, _ := newTestServer()

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"unknown token", "bogus", http.StatusUnauthorized},
		{"student token", "student-token", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, http.MethodGet, "/api/prompts", tt.token, "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	s, store := newTestServer()

	w := doRequest(s, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("healthy status = %d, want 200", w.Code)
	}

	store.healthy = false
	w = doRequest(s, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d, want 503", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodOptions, "/api/prompts", "", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
