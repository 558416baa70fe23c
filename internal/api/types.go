// Package api is the typed client for the analysis backend's endpoints.
// Every method rides the authenticated gateway; wire shapes mirror the
// backend's JSON verbatim.
package api

import "time"

// ResultOrigin records where a ScanResult came from. It never crosses the
// wire: the backend only ever produces live results, and the degraded
// fallback is fabricated client-side by the scan workflow.
type ResultOrigin string

const (
	// OriginLive marks a result produced by the backend's analysis.
	OriginLive ResultOrigin = "live"

	// OriginDegraded marks a locally fabricated stand-in result, produced
	// only when the backend was unreachable. Non-authoritative.
	OriginDegraded ResultOrigin = "degraded"
)

// ScanResult is the verdict for one analyzed image. Immutable once attached
// to a scan attempt.
type ScanResult struct {
	VegetableName string    `json:"vegetable_name"`
	SafeToEat     bool      `json:"safe_to_eat"`
	DiseaseName   string    `json:"disease_name"` // "None detected" when clean
	Confidence    int       `json:"confidence"`   // 0..100
	AnalysisDate  time.Time `json:"analysis_date"`

	Origin ResultOrigin `json:"-"`
}

// ScanRecord is one entry of the persisted server-side history.
type ScanRecord struct {
	ID            string    `json:"id"`
	VegetableName string    `json:"vegetable_name"`
	SafeToEat     bool      `json:"safe_to_eat"`
	DiseaseName   string    `json:"disease_name"`
	Confidence    int       `json:"confidence"`
	ScanDate      time.Time `json:"scan_date"`
}

// DashboardStats is the aggregate view served by GET /dashboard. Totals and
// history derive from the same scan records the backend persists.
type DashboardStats struct {
	TotalGood   int          `json:"total_good"`
	TotalBad    int          `json:"total_bad"`
	RecentScans []ScanRecord `json:"recentScans"`
}

// TotalScans is the total number of recorded scans.
func (d *DashboardStats) TotalScans() int {
	return d.TotalGood + d.TotalBad
}

// SafetyRate is the share of safe scans in percent, 0 when nothing was
// scanned yet.
func (d *DashboardStats) SafetyRate() int {
	total := d.TotalScans()
	if total == 0 {
		return 0
	}
	return int(float64(d.TotalGood)/float64(total)*100 + 0.5)
}

// User is an account as the admin endpoints expose it.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	IsAdmin   bool       `json:"is_admin"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
	ScanCount int        `json:"scan_count"`
}

// ModelInfo describes the inference model the backend is wired to.
type ModelInfo struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
}

// SystemStatus is the operational snapshot served by GET /admin/system-status.
type SystemStatus struct {
	APIStatus        string    `json:"api_status"`
	DatabaseStatus   string    `json:"database_status"`
	LMStudioStatus   string    `json:"lm_studio_status"`
	TotalStorageUsed int       `json:"total_storage_used"` // percent
	DatasetSize      int       `json:"dataset_size"`
	ModelInfo        ModelInfo `json:"model_info"`
}

// AITestResult is the outcome of the admin connectivity probe against the
// inference backend.
type AITestResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
