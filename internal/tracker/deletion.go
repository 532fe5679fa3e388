package tracker

import (
	"fmt"

	"gorm.io/gorm"
)

// Deletion policy. Every function runs inside the caller's transaction and removes join rows
// explicitly, so the outcome does not depend on which foreign key actions the database enforces.

// joinTables maps each tagged table to its many2many join table and owning column.
var joinTables = []struct {
	table, join, column string
}{
	{"companies", "company_tags", "company_id"},
	{"resumes", "resume_tags", "resume_id"},
	{"applications", "application_tags", "application_id"},
	{"interviews", "interview_tags", "interview_id"},
}

func execAll(tx *gorm.DB, stmts ...statement) error {
	for _, st := range stmts {
		if err := tx.Exec(st.sql, st.args...).Error; err != nil {
			return fmt.Errorf("exec %q: %w", st.sql, err)
		}
	}
	return nil
}

type statement struct {
	sql  string
	args []any
}

func stmt(sql string, args ...any) statement {
	return statement{sql: sql, args: args}
}

const (
	interviewsOfApplication = "SELECT id FROM interviews WHERE application_id = ?"
	applicationsOfCompany   = "SELECT id FROM applications WHERE company_id = ?"
	interviewsOfCompany     = "SELECT id FROM interviews WHERE application_id IN (" + applicationsOfCompany + ")"
)

func deleteInterview(tx *gorm.DB, iv *Interview) error {
	return execAll(tx,
		stmt("DELETE FROM interview_tags WHERE interview_id = ?", iv.ID),
		stmt("DELETE FROM interviews WHERE id = ?", iv.ID),
	)
}

func deleteApplication(tx *gorm.DB, app *Application) error {
	return execAll(tx,
		stmt("DELETE FROM interview_tags WHERE interview_id IN ("+interviewsOfApplication+")", app.ID),
		stmt("DELETE FROM interviews WHERE application_id = ?", app.ID),
		stmt("DELETE FROM application_tags WHERE application_id = ?", app.ID),
		stmt("DELETE FROM applications WHERE id = ?", app.ID),
	)
}

func deleteCompany(tx *gorm.DB, c *Company) error {
	return execAll(tx,
		stmt("DELETE FROM interview_tags WHERE interview_id IN ("+interviewsOfCompany+")", c.ID),
		stmt("DELETE FROM interviews WHERE application_id IN ("+applicationsOfCompany+")", c.ID),
		stmt("DELETE FROM application_tags WHERE application_id IN ("+applicationsOfCompany+")", c.ID),
		stmt("DELETE FROM applications WHERE company_id = ?", c.ID),
		stmt("DELETE FROM company_tags WHERE company_id = ?", c.ID),
		stmt("DELETE FROM companies WHERE id = ?", c.ID),
	)
}

// deleteCountry keeps referencing companies and applications, clearing their country.
func deleteCountry(tx *gorm.DB, c *Country) error {
	return execAll(tx,
		stmt("UPDATE companies SET country_id = NULL WHERE country_id = ?", c.ID),
		stmt("UPDATE applications SET country_id = NULL WHERE country_id = ?", c.ID),
		stmt("DELETE FROM countries WHERE id = ?", c.ID),
	)
}

// deleteResume removes the row only; the caller drops the blob once the transaction commits.
func deleteResume(tx *gorm.DB, r *Resume) error {
	return execAll(tx,
		stmt("UPDATE applications SET resume_id = NULL WHERE resume_id = ?", r.ID),
		stmt("DELETE FROM resume_tags WHERE resume_id = ?", r.ID),
		stmt("DELETE FROM resumes WHERE id = ?", r.ID),
	)
}

func deleteTag(tx *gorm.DB, t *Tag) error {
	stmts := make([]statement, 0, len(joinTables)+1)
	for _, jt := range joinTables {
		stmts = append(stmts, stmt("DELETE FROM "+jt.join+" WHERE tag_id = ?", t.ID))
	}
	stmts = append(stmts, stmt("DELETE FROM tags WHERE id = ?", t.ID))
	return execAll(tx, stmts...)
}

// deleteOwnedRows removes everything ownerID owns, children first, and finally the user row.
func deleteOwnedRows(tx *gorm.DB, ownerID uint) error {
	stmts := make([]statement, 0, 2*len(joinTables)+3)
	for _, jt := range joinTables {
		stmts = append(stmts, stmt(
			"DELETE FROM "+jt.join+" WHERE "+jt.column+" IN (SELECT id FROM "+jt.table+" WHERE owner_id = ?)", ownerID))
	}
	for _, table := range []string{"interviews", "applications", "resumes", "companies", "tags", "countries"} {
		stmts = append(stmts, stmt("DELETE FROM "+table+" WHERE owner_id = ?", ownerID))
	}
	stmts = append(stmts, stmt("DELETE FROM users WHERE id = ?", ownerID))
	return execAll(tx, stmts...)
}
