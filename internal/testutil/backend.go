// Package testutil provides a mock analysis backend for integration testing
// of the vegscan client. The server implements the full HTTP contract the
// client consumes (auth, profile, scan, dashboard, history, admin) with
// in-memory state and switchable failure modes.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Seeded accounts available on every fresh backend.
const (
	ConsumerEmail    = "user@test.com"
	ConsumerPassword = "password123"
	AdminEmail       = "admin@test.com"
	AdminPassword    = "admin123"
)

// backendUser is an account as the mock backend stores it.
type backendUser struct {
	ID        string
	Email     string
	Username  string
	Password  string
	IsAdmin   bool
	IsActive  bool
	CreatedAt time.Time
}

// scanRecord is one persisted scan.
type scanRecord struct {
	ID            string    `json:"id"`
	VegetableName string    `json:"vegetable_name"`
	SafeToEat     bool      `json:"safe_to_eat"`
	DiseaseName   string    `json:"disease_name"`
	Confidence    int       `json:"confidence"`
	ScanDate      time.Time `json:"scan_date"`
	userID        string
}

// Backend is the mock analysis service. Zero value is not usable; create
// one with NewBackend.
type Backend struct {
	Server *httptest.Server

	mu           sync.Mutex
	users        map[string]*backendUser // keyed by email
	tokens       map[string]*backendUser // keyed by bearer token
	scans        []scanRecord
	nextID       int
	requestCount int

	// Failure modes, settable mid-test.
	rejectImages bool // POST /scan answers 400
	failScans    bool // POST /scan answers 500
}

// NewBackend creates and starts a mock backend with the seeded accounts.
// Close the returned backend after use.
func NewBackend() *Backend {
	b := &Backend{
		users:  make(map[string]*backendUser),
		tokens: make(map[string]*backendUser),
	}

	b.users[ConsumerEmail] = &backendUser{
		ID: "u-1", Email: ConsumerEmail, Username: "testuser",
		Password: ConsumerPassword, IsActive: true, CreatedAt: time.Now().UTC(),
	}
	b.users[AdminEmail] = &backendUser{
		ID: "u-2", Email: AdminEmail, Username: "admin",
		Password: AdminPassword, IsAdmin: true, IsActive: true, CreatedAt: time.Now().UTC(),
	}
	b.nextID = 3

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", b.handleLogin)
	mux.HandleFunc("POST /auth/register", b.handleRegister)
	mux.HandleFunc("GET /users/me", b.handleMe)
	mux.HandleFunc("POST /scan", b.handleScan)
	mux.HandleFunc("GET /dashboard", b.handleDashboard)
	mux.HandleFunc("GET /history", b.handleHistory)
	mux.HandleFunc("GET /admin/users", b.handleAdminUsers)
	mux.HandleFunc("PUT /admin/users/{id}/toggle-status", b.handleToggleUser)
	mux.HandleFunc("DELETE /admin/users/{id}", b.handleDeleteUser)
	mux.HandleFunc("GET /admin/system-status", b.handleSystemStatus)
	mux.HandleFunc("GET /admin/system/test-ai", b.handleTestAI)
	mux.HandleFunc("POST /admin/system/clear-dataset", b.handleClearDataset)
	mux.HandleFunc("GET /admin/system/export-data", b.handleExportData)

	b.Server = httptest.NewServer(b.counting(mux))
	return b
}

// URL returns the backend's base URL.
func (b *Backend) URL() string { return b.Server.URL }

// Close shuts the backend down.
func (b *Backend) Close() { b.Server.Close() }

// RequestCount returns the number of requests the backend has seen.
func (b *Backend) RequestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requestCount
}

// SetRejectImages makes POST /scan answer 400, simulating image validation
// failure.
func (b *Backend) SetRejectImages(reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectImages = reject
}

// SetFailScans makes POST /scan answer 500, simulating an analysis outage.
func (b *Backend) SetFailScans(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failScans = fail
}

// counting wraps the mux to track request counts.
func (b *Backend) counting(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requestCount++
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the bearer token to a user, or writes 401 and
// returns nil.
func (b *Backend) authenticate(w http.ResponseWriter, r *http.Request) *backendUser {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return nil
	}

	b.mu.Lock()
	user := b.tokens[token]
	b.mu.Unlock()

	if user == nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid token")
		return nil
	}
	return user
}

// requireAdmin resolves the token and enforces the admin role.
func (b *Backend) requireAdmin(w http.ResponseWriter, r *http.Request) *backendUser {
	user := b.authenticate(w, r)
	if user == nil {
		return nil
	}
	if !user.IsAdmin {
		writeDetail(w, http.StatusForbidden, "Admin access required")
		return nil
	}
	return user
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user := b.users[creds.Email]
	if user == nil || user.Password != creds.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !user.IsActive {
		writeDetail(w, http.StatusForbidden, "Account disabled")
		return
	}

	token := fmt.Sprintf("tok-%s-%d", user.ID, b.requestCount)
	b.tokens[token] = user

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user_id":      user.ID,
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.users[req.Email] != nil {
		writeDetail(w, http.StatusConflict, "Email already registered")
		return
	}

	user := &backendUser{
		ID:        fmt.Sprintf("u-%d", b.nextID),
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		IsAdmin:   req.IsAdmin,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	b.nextID++
	b.users[req.Email] = user

	writeJSON(w, http.StatusCreated, map[string]any{"id": user.ID, "email": user.Email})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	user := b.authenticate(w, r)
	if user == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"is_admin": user.IsAdmin,
	})
}

// handleScan accepts a multipart image upload and answers a deterministic
// verdict derived from the filename, so tests can assert on it.
func (b *Backend) handleScan(w http.ResponseWriter, r *http.Request) {
	user := b.authenticate(w, r)
	if user == nil {
		return
	}

	b.mu.Lock()
	reject, fail := b.rejectImages, b.failScans
	b.mu.Unlock()

	if fail {
		writeDetail(w, http.StatusInternalServerError, "Analysis backend offline")
		return
	}
	if reject {
		writeDetail(w, http.StatusBadRequest, "Image could not be recognized as a vegetable")
		return
	}

	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data") {
		writeDetail(w, http.StatusBadRequest, "Expected multipart form data")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Missing image field")
		return
	}
	file.Close()

	name := strings.ToLower(header.Filename)
	result := scanRecord{
		VegetableName: "Unknown Vegetable",
		SafeToEat:     true,
		DiseaseName:   "None detected",
		Confidence:    95,
		ScanDate:      time.Now().UTC(),
		userID:        user.ID,
	}
	switch {
	case strings.Contains(name, "tomato"):
		result.VegetableName = "Tomato"
	case strings.Contains(name, "lettuce"):
		result.VegetableName = "Lettuce"
	case strings.Contains(name, "rotten"):
		result.VegetableName = "Tomato"
		result.SafeToEat = false
		result.DiseaseName = "Bacterial Spot"
		result.Confidence = 88
	}

	b.mu.Lock()
	result.ID = fmt.Sprintf("s-%d", len(b.scans)+1)
	b.scans = append(b.scans, result)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"vegetable_name": result.VegetableName,
		"safe_to_eat":    result.SafeToEat,
		"disease_name":   result.DiseaseName,
		"confidence":     result.Confidence,
		"analysis_date":  result.ScanDate,
	})
}

func (b *Backend) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := b.authenticate(w, r)
	if user == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	good, bad := 0, 0
	var recent []scanRecord
	for i := len(b.scans) - 1; i >= 0; i-- {
		rec := b.scans[i]
		if rec.userID != user.ID {
			continue
		}
		if rec.SafeToEat {
			good++
		} else {
			bad++
		}
		if len(recent) < 5 {
			recent = append(recent, rec)
		}
	}
	if recent == nil {
		recent = []scanRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_good":  good,
		"total_bad":   bad,
		"recentScans": recent,
	})
}

func (b *Backend) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := b.authenticate(w, r)
	if user == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	records := []scanRecord{}
	for i := len(b.scans) - 1; i >= 0; i-- {
		if b.scans[i].userID == user.ID {
			records = append(records, b.scans[i])
		}
	}
	writeJSON(w, http.StatusOK, records)
}

func (b *Backend) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if b.requireAdmin(w, r) == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := []map[string]any{}
	for _, u := range b.users {
		count := 0
		for _, rec := range b.scans {
			if rec.userID == u.ID {
				count++
			}
		}
		out = append(out, map[string]any{
			"id":         u.ID,
			"email":      u.Email,
			"username":   u.Username,
			"is_admin":   u.IsAdmin,
			"is_active":  u.IsActive,
			"created_at": u.CreatedAt,
			"last_login": nil,
			"scan_count": count,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleToggleUser(w http.ResponseWriter, r *http.Request) {
	if b.requireAdmin(w, r) == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := r.PathValue("id")
	for _, u := range b.users {
		if u.ID == id {
			u.IsActive = !u.IsActive
			writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "is_active": u.IsActive})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func (b *Backend) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if b.requireAdmin(w, r) == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := r.PathValue("id")
	for email, u := range b.users {
		if u.ID == id {
			delete(b.users, email)
			writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func (b *Backend) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	if b.requireAdmin(w, r) == nil {
		return
	}

	b.mu.Lock()
	datasetSize := len(b.scans)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"api_status":         "online",
		"database_status":    "connected",
		"lm_studio_status":   "active",
		"total_storage_used": 42,
		"dataset_size":       datasetSize,
		"model_info": map[string]any{
			"name":     "veg-safety-v2",
			"endpoint": "http://localhost:1234/v1",
		},
	})
}

func (b *Backend) handleTestAI(w http.ResponseWriter, r *http.Request) {
	if b.requireAdmin(w, r) == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Inference backend responded",
	})
}

func (b *Backend) handleClearDataset(w http.ResponseWriter, r *http.Request) {
	if b.requireAdmin(w, r) == nil {
		return
	}

	b.mu.Lock()
	b.scans = nil
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func (b *Backend) handleExportData(w http.ResponseWriter, r *http.Request) {
	if b.requireAdmin(w, r) == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"scans": b.scans})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeDetail writes the backend's machine-readable error shape.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
