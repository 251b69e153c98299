package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mitranim/rql"
	"github.com/mitranim/rql/sqlrepo"
)

const articleType = `articles`

type Article struct {
	ID        string  `json:"id"        db:"id"`
	Title     string  `json:"title"     db:"title"`
	Body      string  `json:"body"      db:"body"`
	Status    string  `json:"status"    db:"status"`
	Rating    int64   `json:"rating"    db:"rating"`
	Published *string `json:"published" db:"published"`
}

const articleSchema = `
create table if not exists articles (
	id        text    primary key,
	title     text    not null default '',
	body      text    not null default '',
	status    text    not null default 'draft',
	rating    integer not null default 0,
	published text
)
`

var articleSeed = []map[string]interface{}{
	{`title`: `Filtering with RQL`, `status`: `published`, `rating`: 5, `published`: `2021-03-01T09:00:00+0000`},
	{`title`: `JSON:API pagination`, `status`: `published`, `rating`: 4, `published`: `2021-06-15T12:30:00+0000`},
	{`title`: `Escaping LIKE patterns`, `status`: `published`, `rating`: 3, `published`: `2022-01-10T08:00:00+0000`},
	{`title`: `Sparse fieldsets`, `status`: `draft`, `rating`: 2},
	{`title`: `Ordering by nested fields`, `status`: `draft`, `rating`: 1},
}

func newArticleRepo(ctx context.Context, db *sql.DB, seed bool) (*sqlrepo.Repo, error) {
	_, err := db.ExecContext(ctx, articleSchema)
	if err != nil {
		return nil, fmt.Errorf(`failed to create the articles table: %w`, err)
	}

	repo, err := sqlrepo.New(db, articleType, Article{})
	if err != nil {
		return nil, err
	}
	if !seed {
		return repo, nil
	}

	count, err := repo.Count(ctx, rql.Query{})
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return repo, nil
	}

	for _, attrs := range articleSeed {
		_, err := repo.Create(ctx, ``, attrs)
		if err != nil {
			return nil, fmt.Errorf(`failed to seed articles: %w`, err)
		}
	}
	return repo, nil
}
