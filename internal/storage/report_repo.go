package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MimoJanra/DomainReport/internal/models"
)

// createdAtLayout is fixed width so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000Z"

const reportColumns = "id, domain_id, report_id, total_errors, services_completed, duration_ms, body, created_at"

// ReportRepo stores full reports as JSON next to the summary columns used
// for listing.
type ReportRepo struct {
	db *sql.DB
}

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

func (r *ReportRepo) Add(domainID int, report models.DomainReport) (models.StoredReport, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return models.StoredReport{}, fmt.Errorf("marshal report: %w", err)
	}

	createdAt := report.Summary.AnalysisTimestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	timestamp := createdAt.UTC().Format(createdAtLayout)

	res, err := r.db.Exec(`
		INSERT INTO reports(domain_id, report_id, total_errors, services_completed, duration_ms, body, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, domainID, report.ID, report.Summary.TotalErrors, report.Summary.ServicesCompleted,
		report.Summary.AnalysisDuration, string(body), timestamp)
	if err != nil {
		return models.StoredReport{}, err
	}
	id, _ := res.LastInsertId()

	return models.StoredReport{
		ID:                int(id),
		DomainID:          domainID,
		ReportID:          report.ID,
		TotalErrors:       report.Summary.TotalErrors,
		ServicesCompleted: report.Summary.ServicesCompleted,
		DurationMS:        report.Summary.AnalysisDuration,
		CreatedAt:         timestamp,
		Report:            report,
	}, nil
}

func (r *ReportRepo) GetByID(id int) (models.StoredReport, error) {
	row := r.db.QueryRow("SELECT "+reportColumns+" FROM reports WHERE id = ?", id)
	return scanReport(row)
}

// ListByDomain returns the newest reports of a domain first. limit <= 0
// means no limit.
func (r *ReportRepo) ListByDomain(domainID, limit int) ([]models.StoredReport, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(`
		SELECT `+reportColumns+`
		FROM reports
		WHERE domain_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, domainID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []models.StoredReport{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

func (r *ReportRepo) GetLatestByDomain(domainID int) (models.StoredReport, error) {
	reports, err := r.ListByDomain(domainID, 1)
	if err != nil {
		return models.StoredReport{}, err
	}
	if len(reports) == 0 {
		return models.StoredReport{}, ErrNotFound
	}
	return reports[0], nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (models.StoredReport, error) {
	var (
		rep  models.StoredReport
		body string
	)
	err := row.Scan(&rep.ID, &rep.DomainID, &rep.ReportID, &rep.TotalErrors,
		&rep.ServicesCompleted, &rep.DurationMS, &body, &rep.CreatedAt)
	if err != nil {
		return models.StoredReport{}, notFound(err)
	}
	if err := json.Unmarshal([]byte(body), &rep.Report); err != nil {
		return models.StoredReport{}, fmt.Errorf("decode report %d: %w", rep.ID, err)
	}
	return rep, nil
}
