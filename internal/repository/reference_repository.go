package repository

import (
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/research-catalog/internal/domain"
)

// NewPgDisciplineRepository creates the disciplines table repository.
// Disciplines are listed by name; parent_field defaults to "Social Sciences".
func NewPgDisciplineRepository(db DBTX) *PgTable[domain.Discipline] {
	return newPgTable(db, tableSpec[domain.Discipline]{
		entity:  domain.EntityDiscipline,
		table:   "disciplines",
		columns: []string{"id", "name", "parent_field"},
		key:     []string{"id"},
		insert:  []string{"id", "name", "parent_field"},
		update:  []string{"name", "parent_field"},
		orderBy: "name",
		prepare: func(d *domain.Discipline) {
			if strings.TrimSpace(d.ID) == "" {
				d.ID = domain.Slugify(d.Name)
			}
			if d.ParentField == nil {
				d.ParentField = domain.StringPtr(domain.DefaultParentField)
			}
		},
		scan: func(row pgx.Row) (*domain.Discipline, error) {
			var d domain.Discipline
			if err := row.Scan(&d.ID, &d.Name, &d.ParentField); err != nil {
				return nil, err
			}
			return &d, nil
		},
		insertArgs: func(d *domain.Discipline) []any { return []any{d.ID, d.Name, d.ParentField} },
		updateArgs: func(d *domain.Discipline) []any { return []any{d.Name, d.ParentField} },
		keyOf:      func(d *domain.Discipline) Key { return ID(d.ID) },
	})
}

// NewPgInstitutionRepository creates the institutions table repository.
func NewPgInstitutionRepository(db DBTX) *PgTable[domain.Institution] {
	return newPgTable(db, tableSpec[domain.Institution]{
		entity:  domain.EntityInstitution,
		table:   "institutions",
		columns: []string{"id", "name", "country", "shanghai_rank", "is_private"},
		key:     []string{"id"},
		insert:  []string{"id", "name", "country", "shanghai_rank", "is_private"},
		update:  []string{"name", "country", "shanghai_rank", "is_private"},
		orderBy: "name",
		prepare: func(i *domain.Institution) {
			if strings.TrimSpace(i.ID) == "" {
				i.ID = domain.Slugify(i.Name)
			}
		},
		scan: func(row pgx.Row) (*domain.Institution, error) {
			var i domain.Institution
			if err := row.Scan(&i.ID, &i.Name, &i.Country, &i.ShanghaiRank, &i.IsPrivate); err != nil {
				return nil, err
			}
			return &i, nil
		},
		insertArgs: func(i *domain.Institution) []any {
			return []any{i.ID, i.Name, i.Country, i.ShanghaiRank, i.IsPrivate}
		},
		updateArgs: func(i *domain.Institution) []any {
			return []any{i.Name, i.Country, i.ShanghaiRank, i.IsPrivate}
		},
		keyOf: func(i *domain.Institution) Key { return ID(i.ID) },
	})
}

// NewPgJournalRepository creates the journals table repository.
// Create is idempotent on the journal id.
func NewPgJournalRepository(db DBTX) *PgTable[domain.Journal] {
	return newPgTable(db, tableSpec[domain.Journal]{
		entity:  domain.EntityJournal,
		table:   "journals",
		columns: []string{"id", "name", "issn", "impact_factor", "policy_year_data", "policy_year_open_access"},
		key:     []string{"id"},
		insert:  []string{"id", "name", "issn", "impact_factor", "policy_year_data", "policy_year_open_access"},
		update:  []string{"name", "issn", "impact_factor", "policy_year_data", "policy_year_open_access"},
		orderBy: "name",
		upsert:  true,
		prepare: func(j *domain.Journal) {
			if strings.TrimSpace(j.ID) == "" {
				j.ID = domain.JournalID(j.Name)
			}
		},
		scan: func(row pgx.Row) (*domain.Journal, error) {
			var j domain.Journal
			if err := row.Scan(&j.ID, &j.Name, &j.ISSN, &j.ImpactFactor, &j.PolicyYearData, &j.PolicyYearOpenAccess); err != nil {
				return nil, err
			}
			return &j, nil
		},
		insertArgs: func(j *domain.Journal) []any {
			return []any{j.ID, j.Name, j.ISSN, j.ImpactFactor, j.PolicyYearData, j.PolicyYearOpenAccess}
		},
		updateArgs: func(j *domain.Journal) []any {
			return []any{j.Name, j.ISSN, j.ImpactFactor, j.PolicyYearData, j.PolicyYearOpenAccess}
		},
		keyOf: func(j *domain.Journal) Key { return ID(j.ID) },
	})
}

// NewPgFundingAgencyRepository creates the funding_agencies table repository.
func NewPgFundingAgencyRepository(db DBTX) *PgTable[domain.FundingAgency] {
	return newPgTable(db, tableSpec[domain.FundingAgency]{
		entity:  domain.EntityFundingAgency,
		table:   "funding_agencies",
		columns: []string{"id", "name", "is_corporate_conflict"},
		key:     []string{"id"},
		insert:  []string{"id", "name", "is_corporate_conflict"},
		update:  []string{"name", "is_corporate_conflict"},
		orderBy: "name",
		prepare: func(a *domain.FundingAgency) {
			if strings.TrimSpace(a.ID) == "" {
				a.ID = domain.Slugify(a.Name)
			}
		},
		scan: func(row pgx.Row) (*domain.FundingAgency, error) {
			var a domain.FundingAgency
			if err := row.Scan(&a.ID, &a.Name, &a.IsCorporateConflict); err != nil {
				return nil, err
			}
			return &a, nil
		},
		insertArgs: func(a *domain.FundingAgency) []any { return []any{a.ID, a.Name, a.IsCorporateConflict} },
		updateArgs: func(a *domain.FundingAgency) []any { return []any{a.Name, a.IsCorporateConflict} },
		keyOf:      func(a *domain.FundingAgency) Key { return ID(a.ID) },
	})
}

// NewPgAuthorRepository creates the authors table repository.
// Create is idempotent on the author id; gender defaults to U.
func NewPgAuthorRepository(db DBTX) *PgTable[domain.Author] {
	return newPgTable(db, tableSpec[domain.Author]{
		entity:  domain.EntityAuthor,
		table:   "authors",
		columns: []string{"id", "full_name", "gender", "phd_year", "current_institution_id"},
		key:     []string{"id"},
		insert:  []string{"id", "full_name", "gender", "phd_year", "current_institution_id"},
		update:  []string{"full_name", "gender", "phd_year", "current_institution_id"},
		orderBy: "full_name",
		upsert:  true,
		prepare: func(a *domain.Author) {
			if strings.TrimSpace(a.ID) == "" {
				a.ID = domain.AuthorID(a.FullName)
			}
		},
		scan: scanAuthor,
		insertArgs: func(a *domain.Author) []any {
			return []any{a.ID, a.FullName, string(domain.ParseGender(string(a.Gender))), a.PhDYear, a.CurrentInstitutionID}
		},
		updateArgs: func(a *domain.Author) []any {
			return []any{a.FullName, string(domain.ParseGender(string(a.Gender))), a.PhDYear, a.CurrentInstitutionID}
		},
		keyOf: func(a *domain.Author) Key { return ID(a.ID) },
	})
}

func scanAuthor(row pgx.Row) (*domain.Author, error) {
	var (
		a      domain.Author
		gender string
	)
	if err := row.Scan(&a.ID, &a.FullName, &gender, &a.PhDYear, &a.CurrentInstitutionID); err != nil {
		return nil, err
	}
	a.Gender = domain.ParseGender(gender)
	return &a, nil
}
