package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/MimoJanra/DomainReport/internal/models"
)

type DomainRepo struct {
	db *sql.DB
}

func NewDomainRepo(db *sql.DB) *DomainRepo { return &DomainRepo{db: db} }

func (r *DomainRepo) GetAll() ([]models.Domain, error) {
	rows, err := r.db.Query("SELECT id, name FROM domains ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	domains := []models.Domain{}
	for rows.Next() {
		var d models.Domain
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

func (r *DomainRepo) GetByID(id int) (models.Domain, error) {
	var d models.Domain
	err := r.db.QueryRow("SELECT id, name FROM domains WHERE id = ?", id).Scan(&d.ID, &d.Name)
	return d, notFound(err)
}

func (r *DomainRepo) GetByName(name string) (models.Domain, error) {
	var d models.Domain
	err := r.db.QueryRow("SELECT id, name FROM domains WHERE name = ?", name).Scan(&d.ID, &d.Name)
	return d, notFound(err)
}

func (r *DomainRepo) Add(name string) (models.Domain, error) {
	res, err := r.db.Exec("INSERT INTO domains(name) VALUES(?)", name)
	if err != nil {
		return models.Domain{}, fmt.Errorf("insert domain %q: %w", name, err)
	}
	id, _ := res.LastInsertId()
	return models.Domain{ID: int(id), Name: name}, nil
}

// GetOrCreate returns the domain called name, inserting it first if needed.
func (r *DomainRepo) GetOrCreate(name string) (models.Domain, error) {
	if _, err := r.db.Exec("INSERT OR IGNORE INTO domains(name) VALUES(?)", name); err != nil {
		return models.Domain{}, fmt.Errorf("insert domain %q: %w", name, err)
	}
	return r.GetByName(name)
}

func (r *DomainRepo) DeleteByID(id int) (models.Domain, error) {
	d, err := r.GetByID(id)
	if err != nil {
		return models.Domain{}, err
	}
	res, err := r.db.Exec("DELETE FROM domains WHERE id = ?", id)
	if err != nil {
		return models.Domain{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Domain{}, ErrNotFound
	}
	return d, nil
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
