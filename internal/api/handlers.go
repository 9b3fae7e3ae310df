package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MimoJanra/DomainReport/internal/analyzer"
	"github.com/MimoJanra/DomainReport/internal/models"
	"github.com/MimoJanra/DomainReport/internal/storage"
)

type ReportRunner interface {
	Analyze(ctx context.Context, domain, url string) (models.StoredReport, error)
	AnalyzeBatch(ctx context.Context, targets []analyzer.Target, concurrency int) ([]models.StoredReport, error)
}

type Server struct {
	DomainRepo       *storage.DomainRepo
	MonitorRepo      *storage.MonitorRepo
	ReportRepo       *storage.ReportRepo
	NotificationRepo *storage.NotificationRepo
	Reports          ReportRunner
	Logger           *zap.Logger
	BatchConcurrency int
	MaxBatchSize     int
}

type AnalyzeRequest struct {
	Domain string `json:"domain" example:"se1gym.co.uk"`
	URL    string `json:"url,omitempty" example:"https://se1gym.co.uk/"`
}

type BatchRequest struct {
	Targets     []AnalyzeRequest `json:"targets"`
	Concurrency int              `json:"concurrency,omitempty" example:"4"`
}

type CreateDomainRequest struct {
	Name string `json:"name" example:"example.com"`
}

type CreateMonitorRequest struct {
	URL             string `json:"url,omitempty" example:"https://example.com"`
	IntervalSeconds int    `json:"interval_seconds" example:"3600"`
	Enabled         *bool  `json:"enabled,omitempty" example:"true"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

var domainRegex = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

func validateDomain(raw string) (string, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return "", errors.New("domain name required")
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.New("invalid url")
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	if host == "" || !domainRegex.MatchString(host) {
		return "", errors.New("invalid domain name")
	}

	return host, nil
}

// validateTargetURL accepts an empty value, which means https://<domain>.
func validateTargetURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.New("url must be an absolute http(s) URL")
	}
	return u.String(), nil
}

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) logError(msg string, err error, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Error(msg, append(fields, zap.Error(err))...)
	}
}

// Health godoc
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Analyze godoc
// @Summary      Analyse one domain
// @Description  Runs every enabled provider and returns the composite report. Provider failures are reported inside the report, never as an HTTP error.
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        request  body      AnalyzeRequest  true  "Domain and optional URL"
// @Success      200      {object}  models.DomainReport
// @Failure      400      {string}  string
// @Router       /analyze [post]
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := parseTarget(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := s.Reports.Analyze(r.Context(), target.Domain, target.URL)
	if err != nil {
		s.logError("failed to store report", err, zap.String("domain", target.Domain))
		writeError(w, http.StatusInternalServerError, "failed to store report")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/reports/%d", stored.ID))
	writeJSON(w, http.StatusOK, stored.Report)
}

// AnalyzeBatch godoc
// @Summary      Analyse several domains
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        request  body      BatchRequest  true  "Targets"
// @Success      200      {array}   models.DomainReport
// @Failure      400      {string}  string
// @Router       /analyze/batch [post]
func (s *Server) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var body BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Targets) == 0 {
		writeError(w, http.StatusBadRequest, "targets required")
		return
	}
	if s.MaxBatchSize > 0 && len(body.Targets) > s.MaxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d targets per batch", s.MaxBatchSize))
		return
	}

	targets := make([]analyzer.Target, 0, len(body.Targets))
	for i, t := range body.Targets {
		target, err := parseTarget(t)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("targets[%d]: %v", i, err))
			return
		}
		targets = append(targets, target)
	}

	concurrency := body.Concurrency
	if concurrency <= 0 || (s.BatchConcurrency > 0 && concurrency > s.BatchConcurrency) {
		concurrency = s.BatchConcurrency
	}

	stored, err := s.Reports.AnalyzeBatch(r.Context(), targets, concurrency)
	if err != nil {
		s.logError("failed to store batch", err, zap.Int("targets", len(targets)))
		writeError(w, http.StatusInternalServerError, "failed to store reports")
		return
	}

	reports := make([]models.DomainReport, 0, len(stored))
	for _, st := range stored {
		reports = append(reports, st.Report)
	}
	writeJSON(w, http.StatusOK, reports)
}

func parseTarget(body AnalyzeRequest) (analyzer.Target, error) {
	domain, err := validateDomain(body.Domain)
	if err != nil {
		return analyzer.Target{}, err
	}
	u, err := validateTargetURL(body.URL)
	if err != nil {
		return analyzer.Target{}, err
	}
	return analyzer.Target{Domain: domain, URL: u}, nil
}

// GetDomains godoc
// @Summary      List domains
// @Tags         domains
// @Produce      json
// @Success      200  {array}  models.Domain
// @Router       /domains [get]
func (s *Server) GetDomains(w http.ResponseWriter, _ *http.Request) {
	domains, err := s.DomainRepo.GetAll()
	if err != nil {
		s.logError("failed to get domains", err)
		writeError(w, http.StatusInternalServerError, "failed to get domains")
		return
	}
	writeJSON(w, http.StatusOK, domains)
}

// CreateDomain godoc
// @Summary      Register a domain
// @Tags         domains
// @Accept       json
// @Produce      json
// @Param        request  body      CreateDomainRequest  true  "Domain"
// @Success      201      {object}  models.Domain
// @Failure      400      {string}  string
// @Failure      409      {string}  string
// @Router       /domains [post]
func (s *Server) CreateDomain(w http.ResponseWriter, r *http.Request) {
	var body CreateDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name, err := validateDomain(body.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	domain, err := s.DomainRepo.Add(name)
	if storage.IsDuplicate(err) {
		writeError(w, http.StatusConflict, "domain already exists")
		return
	}
	if err != nil {
		s.logError("failed to add domain", err, zap.String("domain", name))
		writeError(w, http.StatusInternalServerError, "failed to add domain")
		return
	}
	writeJSON(w, http.StatusCreated, domain)
}

// DeleteDomain godoc
// @Summary      Delete a domain with its monitors and reports
// @Tags         domains
// @Produce      json
// @Param        id   path      int  true  "Domain ID"
// @Success      200  {object}  map[string]int
// @Failure      404  {string}  string
// @Router       /domains/{id} [delete]
func (s *Server) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	_, err := s.DomainRepo.DeleteByID(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "domain not found")
		return
	}
	if err != nil {
		s.logError("failed to delete domain", err, zap.Int("domain_id", id))
		writeError(w, http.StatusInternalServerError, "failed to delete domain")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// GetDomainReports godoc
// @Summary      List stored reports of a domain, newest first
// @Tags         reports
// @Produce      json
// @Param        id     path      int  true   "Domain ID"
// @Param        limit  query     int  false  "Maximum number of reports"
// @Success      200    {array}   models.StoredReport
// @Router       /domains/{id}/reports [get]
func (s *Server) GetDomainReports(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	reports, err := s.ReportRepo.ListByDomain(id, limit)
	if err != nil {
		s.logError("failed to list reports", err, zap.Int("domain_id", id))
		writeError(w, http.StatusInternalServerError, "failed to get reports")
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// GetLatestReport godoc
// @Summary      Latest stored report of a domain
// @Tags         reports
// @Produce      json
// @Param        id   path      int  true  "Domain ID"
// @Success      200  {object}  models.StoredReport
// @Failure      404  {string}  string
// @Router       /domains/{id}/reports/latest [get]
func (s *Server) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	report, err := s.ReportRepo.GetLatestByDomain(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no reports for domain")
		return
	}
	if err != nil {
		s.logError("failed to get latest report", err, zap.Int("domain_id", id))
		writeError(w, http.StatusInternalServerError, "failed to get report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetReport godoc
// @Summary      Stored report by ID
// @Tags         reports
// @Produce      json
// @Param        id   path      int  true  "Report ID"
// @Success      200  {object}  models.StoredReport
// @Failure      404  {string}  string
// @Router       /reports/{id} [get]
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	report, err := s.ReportRepo.GetByID(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		s.logError("failed to get report", err, zap.Int("report_id", id))
		writeError(w, http.StatusInternalServerError, "failed to get report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetMonitors godoc
// @Summary      List monitors of a domain
// @Tags         monitors
// @Produce      json
// @Param        id   path      int  true  "Domain ID"
// @Success      200  {array}   models.Monitor
// @Router       /domains/{id}/monitors [get]
func (s *Server) GetMonitors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	monitors, err := s.MonitorRepo.GetAll(&id)
	if err != nil {
		s.logError("failed to get monitors", err, zap.Int("domain_id", id))
		writeError(w, http.StatusInternalServerError, "failed to get monitors")
		return
	}
	writeJSON(w, http.StatusOK, monitors)
}

// CreateMonitor godoc
// @Summary      Schedule periodic analysis of a domain
// @Tags         monitors
// @Accept       json
// @Produce      json
// @Param        id       path      int                   true  "Domain ID"
// @Param        request  body      CreateMonitorRequest  true  "Monitor"
// @Success      201      {object}  models.Monitor
// @Failure      400      {string}  string
// @Failure      404      {string}  string
// @Router       /domains/{id}/monitors [post]
func (s *Server) CreateMonitor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	var body CreateMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.IntervalSeconds < 0 || (body.IntervalSeconds > 0 && body.IntervalSeconds < 60) {
		writeError(w, http.StatusBadRequest, "interval_seconds must be at least 60")
		return
	}

	domain, err := s.DomainRepo.GetByID(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "domain not found")
		return
	}
	if err != nil {
		s.logError("failed to get domain", err, zap.Int("domain_id", id))
		writeError(w, http.StatusInternalServerError, "failed to get domain")
		return
	}

	target, err := validateTargetURL(body.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	target = analyzer.TargetURL(domain.Name, target)

	enabled := true
	if body.Enabled != nil {
		enabled = *body.Enabled
	}

	monitor, err := s.MonitorRepo.Add(domain.ID, target, body.IntervalSeconds, enabled)
	if err != nil {
		s.logError("failed to add monitor", err, zap.Int("domain_id", id))
		writeError(w, http.StatusInternalServerError, "failed to add monitor")
		return
	}
	writeJSON(w, http.StatusCreated, monitor)
}

// DeleteMonitor godoc
// @Summary      Delete a monitor
// @Tags         monitors
// @Param        id   path  int  true  "Monitor ID"
// @Success      204
// @Failure      404  {string}  string
// @Router       /monitors/{id} [delete]
func (s *Server) DeleteMonitor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid monitor id")
		return
	}

	err := s.MonitorRepo.Delete(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "monitor not found")
		return
	}
	if err != nil {
		s.logError("failed to delete monitor", err, zap.Int("monitor_id", id))
		writeError(w, http.StatusInternalServerError, "failed to delete monitor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetNotifications godoc
// @Summary      List notification settings
// @Tags         notifications
// @Produce      json
// @Success      200  {array}  models.NotificationSettings
// @Router       /notifications [get]
func (s *Server) GetNotifications(w http.ResponseWriter, _ *http.Request) {
	settings, err := s.NotificationRepo.GetAll()
	if err != nil {
		s.logError("failed to get notification settings", err)
		writeError(w, http.StatusInternalServerError, "failed to get notification settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// CreateNotification godoc
// @Summary      Add a Telegram or Slack notification target
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        request  body      models.NotificationSettings  true  "Settings"
// @Success      201      {object}  models.NotificationSettings
// @Failure      400      {string}  string
// @Router       /notifications [post]
func (s *Server) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var body models.NotificationSettings
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body.ID = 0

	settings, err := s.NotificationRepo.Add(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, settings)
}

// DeleteNotification godoc
// @Summary      Delete notification settings
// @Tags         notifications
// @Param        id   path  int  true  "Settings ID"
// @Success      204
// @Failure      404  {string}  string
// @Router       /notifications/{id} [delete]
func (s *Server) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	err := s.NotificationRepo.Delete(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "notification settings not found")
		return
	}
	if err != nil {
		s.logError("failed to delete notification settings", err, zap.Int("notification_id", id))
		writeError(w, http.StatusInternalServerError, "failed to delete notification settings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
