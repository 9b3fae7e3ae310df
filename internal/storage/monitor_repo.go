package storage

import (
	"database/sql"

	"github.com/MimoJanra/DomainReport/internal/models"
)

const monitorColumns = "id, domain_id, url, interval_seconds, enabled"

// DefaultMonitorInterval is used when a monitor is created without one.
const DefaultMonitorInterval = 3600

type MonitorRepo struct {
	db *sql.DB
}

func NewMonitorRepo(db *sql.DB) *MonitorRepo { return &MonitorRepo{db: db} }

func (r *MonitorRepo) Add(domainID int, url string, intervalSeconds int, enabled bool) (models.Monitor, error) {
	if intervalSeconds <= 0 {
		intervalSeconds = DefaultMonitorInterval
	}

	res, err := r.db.Exec(
		"INSERT INTO monitors(domain_id, url, interval_seconds, enabled) VALUES(?, ?, ?, ?)",
		domainID, url, intervalSeconds, boolToInt(enabled),
	)
	if err != nil {
		return models.Monitor{}, err
	}
	id, _ := res.LastInsertId()
	return models.Monitor{
		ID:              int(id),
		DomainID:        domainID,
		URL:             url,
		IntervalSeconds: intervalSeconds,
		Enabled:         enabled,
	}, nil
}

// GetAll lists monitors, optionally only those of one domain.
func (r *MonitorRepo) GetAll(domainID *int) ([]models.Monitor, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if domainID != nil {
		rows, err = r.db.Query("SELECT "+monitorColumns+" FROM monitors WHERE domain_id = ? ORDER BY id", *domainID)
	} else {
		rows, err = r.db.Query("SELECT " + monitorColumns + " FROM monitors ORDER BY id")
	}
	if err != nil {
		return nil, err
	}
	return scanMonitors(rows)
}

func (r *MonitorRepo) GetEnabled() ([]models.Monitor, error) {
	rows, err := r.db.Query("SELECT " + monitorColumns + " FROM monitors WHERE enabled = 1 ORDER BY id")
	if err != nil {
		return nil, err
	}
	return scanMonitors(rows)
}

func (r *MonitorRepo) GetByID(id int) (models.Monitor, error) {
	row := r.db.QueryRow("SELECT "+monitorColumns+" FROM monitors WHERE id = ?", id)
	var (
		m          models.Monitor
		enabledInt int
	)
	if err := row.Scan(&m.ID, &m.DomainID, &m.URL, &m.IntervalSeconds, &enabledInt); err != nil {
		return models.Monitor{}, notFound(err)
	}
	m.Enabled = enabledInt == 1
	return m, nil
}

func (r *MonitorRepo) SetEnabled(id int, enabled bool) error {
	res, err := r.db.Exec("UPDATE monitors SET enabled = ? WHERE id = ?", boolToInt(enabled), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MonitorRepo) Delete(id int) error {
	res, err := r.db.Exec("DELETE FROM monitors WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMonitors(rows *sql.Rows) ([]models.Monitor, error) {
	defer rows.Close()

	monitors := []models.Monitor{}
	for rows.Next() {
		var (
			m          models.Monitor
			enabledInt int
		)
		if err := rows.Scan(&m.ID, &m.DomainID, &m.URL, &m.IntervalSeconds, &enabledInt); err != nil {
			return nil, err
		}
		m.Enabled = enabledInt == 1
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}
