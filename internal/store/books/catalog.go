// Package books is the SQL Catalog: the books table.
package books

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/5w1tchy/lending-api/internal/models"
	"github.com/5w1tchy/lending-api/internal/store/dbx"
)

const bookColumns = `id, title, author, is_available, created_by, created_at, updated_at`

var (
	dialect    = goqu.Dialect("postgres")
	bookFields = []any{"id", "title", "author", "is_available", "created_by", "created_at", "updated_at"}
)

type Catalog struct {
	db dbx.Runner
}

func New(db dbx.Runner) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) CreateBook(ctx context.Context, title, author string, createdBy *string) (models.Book, error) {
	const q = `INSERT INTO books (id, title, author, is_available, created_by)
VALUES ($1, $2, $3, TRUE, $4)
RETURNING ` + bookColumns

	var b models.Book
	if err := sqlx.GetContext(ctx, c.db, &b, q, uuid.NewString(), title, author, createdBy); err != nil {
		return models.Book{}, dbx.Classify("create_book", err)
	}
	return b, nil
}

func (c *Catalog) GetBook(ctx context.Context, id string) (models.Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	var b models.Book
	if err := sqlx.GetContext(ctx, c.db, &b, q, id); err != nil {
		return models.Book{}, dbx.Classify("get_book", err)
	}
	return b, nil
}

// UpdateBook sets only the fields present in patch.
func (c *Catalog) UpdateBook(ctx context.Context, id string, patch models.BookPatch) (models.Book, error) {
	if patch.Empty() {
		return c.GetBook(ctx, id)
	}
	rec := goqu.Record{"updated_at": goqu.L("NOW()")}
	if patch.Title != nil {
		rec["title"] = *patch.Title
	}
	if patch.Author != nil {
		rec["author"] = *patch.Author
	}
	q, args, err := dialect.Update("books").
		Prepared(true).
		Set(rec).
		Where(goqu.C("id").Eq(id)).
		Returning(bookFields...).
		ToSQL()
	if err != nil {
		return models.Book{}, dbx.Classify("update_book", err)
	}

	var b models.Book
	if err := sqlx.GetContext(ctx, c.db, &b, q, args...); err != nil {
		return models.Book{}, dbx.Classify("update_book", err)
	}
	return b, nil
}

func (c *Catalog) DeleteBook(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return dbx.Classify("delete_book", err)
	}
	return requireOneRow("delete_book", res)
}

func (c *Catalog) ListBooks(ctx context.Context) ([]models.Book, error) {
	q, args, err := dialect.From("books").
		Select(bookFields...).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, dbx.Classify("list_books", err)
	}

	out := []models.Book{}
	if err := sqlx.SelectContext(ctx, c.db, &out, q, args...); err != nil {
		return nil, dbx.Classify("list_books", err)
	}
	return out, nil
}

func (c *Catalog) SetAvailability(ctx context.Context, id string, available bool) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE books SET is_available = $1, updated_at = NOW() WHERE id = $2`, available, id)
	if err != nil {
		return dbx.Classify("set_availability", err)
	}
	return requireOneRow("set_availability", res)
}

// requireOneRow turns "nothing matched" into ErrNotFound.
func requireOneRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.Classify(op, err)
	}
	if n == 0 {
		return dbx.Classify(op, sql.ErrNoRows)
	}
	return nil
}
