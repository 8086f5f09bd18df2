package db

import (
	"context"
)

const upsertFiling = `-- name: UpsertFiling :exec
insert into filing(
    filing, file_name, company, company_url, date, time, type, tos_form, format, size, updated_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (filing) do update set
    file_name = excluded.file_name,
    company = excluded.company,
    company_url = excluded.company_url,
    date = excluded.date,
    time = excluded.time,
    type = excluded.type,
    tos_form = excluded.tos_form,
    format = excluded.format,
    size = excluded.size,
    updated_at = excluded.updated_at
`

type UpsertFilingParams struct {
	Filing     string
	FileName   string
	Company    string
	CompanyUrl string
	Date       string
	Time       string
	Type       string
	TosForm    string
	Format     string
	Size       string
	UpdatedAt  int64
}

func (q *Queries) UpsertFiling(ctx context.Context, arg UpsertFilingParams) error {
	_, err := q.db.ExecContext(ctx, upsertFiling,
		arg.Filing,
		arg.FileName,
		arg.Company,
		arg.CompanyUrl,
		arg.Date,
		arg.Time,
		arg.Type,
		arg.TosForm,
		arg.Format,
		arg.Size,
		arg.UpdatedAt,
	)
	return err
}

const getFiling = `-- name: GetFiling :one
select filing, file_name, company, company_url, date, time, type, tos_form, format, size, updated_at from filing where filing = ?
`

func (q *Queries) GetFiling(ctx context.Context, filing string) (Filing, error) {
	row := q.db.QueryRowContext(ctx, getFiling, filing)
	var i Filing
	err := row.Scan(
		&i.Filing,
		&i.FileName,
		&i.Company,
		&i.CompanyUrl,
		&i.Date,
		&i.Time,
		&i.Type,
		&i.TosForm,
		&i.Format,
		&i.Size,
		&i.UpdatedAt,
	)
	return i, err
}

const listFilings = `-- name: ListFilings :many
select filing, file_name, company, company_url, date, time, type, tos_form, format, size, updated_at from filing order by date desc, time desc, filing limit ?
`

func (q *Queries) ListFilings(ctx context.Context, limit int64) ([]Filing, error) {
	rows, err := q.db.QueryContext(ctx, listFilings, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Filing
	for rows.Next() {
		var i Filing
		if err := rows.Scan(
			&i.Filing,
			&i.FileName,
			&i.Company,
			&i.CompanyUrl,
			&i.Date,
			&i.Time,
			&i.Type,
			&i.TosForm,
			&i.Format,
			&i.Size,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countFilings = `-- name: CountFilings :one
select count(*) from filing
`

func (q *Queries) CountFilings(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countFilings)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const upsertCompany = `-- name: UpsertCompany :exec
insert into company(url, name, attributes, updated_at) values (?, ?, ?, ?)
on conflict (url) do update set
    name = excluded.name,
    attributes = excluded.attributes,
    updated_at = excluded.updated_at
`

type UpsertCompanyParams struct {
	Url        string
	Name       string
	Attributes string
	UpdatedAt  int64
}

func (q *Queries) UpsertCompany(ctx context.Context, arg UpsertCompanyParams) error {
	_, err := q.db.ExecContext(ctx, upsertCompany,
		arg.Url,
		arg.Name,
		arg.Attributes,
		arg.UpdatedAt,
	)
	return err
}

const getCompany = `-- name: GetCompany :one
select url, name, attributes, updated_at from company where url = ?
`

func (q *Queries) GetCompany(ctx context.Context, url string) (Company, error) {
	row := q.db.QueryRowContext(ctx, getCompany, url)
	var i Company
	err := row.Scan(
		&i.Url,
		&i.Name,
		&i.Attributes,
		&i.UpdatedAt,
	)
	return i, err
}

const listCompanies = `-- name: ListCompanies :many
select url, name, attributes, updated_at from company order by name limit ?
`

func (q *Queries) ListCompanies(ctx context.Context, limit int64) ([]Company, error) {
	rows, err := q.db.QueryContext(ctx, listCompanies, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Company
	for rows.Next() {
		var i Company
		if err := rows.Scan(
			&i.Url,
			&i.Name,
			&i.Attributes,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
