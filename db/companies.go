// ABOUTME: Company database operations
// ABOUTME: Handles idempotent create-by-domain and company lookups
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meetgraph/meetgraph/models"
)

// EnsureCompany creates a company for the domain if none exists and returns
// the canonical row. The name is cosmetic and fixed at first observation;
// conflicts never update it.
func EnsureCompany(db *sql.DB, domain, name string) (*models.Company, error) {
	now := time.Now()
	_, err := db.Exec(`
		INSERT INTO companies (id, domain, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(domain) DO NOTHING
	`, uuid.New().String(), domain, name, now, now)

	if err != nil {
		return nil, fmt.Errorf("failed to ensure company %s: %w", domain, err)
	}

	company, err := GetCompanyByDomain(db, domain)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("company %s missing after upsert", domain)
	}
	return company, nil
}

func GetCompany(db *sql.DB, id uuid.UUID) (*models.Company, error) {
	return scanCompany(db.QueryRow(`
		SELECT id, domain, name, created_at, updated_at
		FROM companies WHERE id = ?
	`, id.String()))
}

func GetCompanyByDomain(db *sql.DB, domain string) (*models.Company, error) {
	return scanCompany(db.QueryRow(`
		SELECT id, domain, name, created_at, updated_at
		FROM companies WHERE domain = ?
	`, domain))
}

func FindCompanies(db *sql.DB, limit int) ([]models.Company, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, domain, name, created_at, updated_at
		FROM companies
		ORDER BY name
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Domain, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}

	return companies, rows.Err()
}

func scanCompany(row *sql.Row) (*models.Company, error) {
	company := &models.Company{}
	err := row.Scan(
		&company.ID,
		&company.Domain,
		&company.Name,
		&company.CreatedAt,
		&company.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return company, nil
}
