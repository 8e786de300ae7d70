package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ContentStore = (*ContentStore)(nil)

// ContentStore implements driven.ContentStore over the wiki mirror tables.
// Attachments, objects and properties are stored once per page; listings
// stamp them with the language of the page they are listed under.
type ContentStore struct {
	db *DB
}

// NewContentStore creates a new ContentStore
func NewContentStore(db *DB) *ContentStore {
	return &ContentStore{db: db}
}

// Get loads a unit
func (s *ContentStore) Get(ctx context.Context, ref domain.ContentRef) (*domain.ContentUnit, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	var (
		unit *domain.ContentUnit
		err  error
	)
	switch ref.Type {
	case domain.UnitTypePage:
		unit, err = s.getPage(ctx, ref)
	case domain.UnitTypeAttachment:
		unit, err = s.getAttachment(ctx, ref)
	case domain.UnitTypeObject:
		unit, err = s.getObject(ctx, ref)
	case domain.UnitTypeProperty:
		unit, err = s.getProperty(ctx, ref)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ref, err)
	}
	return unit, nil
}

func (s *ContentStore) getPage(ctx context.Context, ref domain.ContentRef) (*domain.ContentUnit, error) {
	query := `
		SELECT title, version, author, creator, content, syntax, hidden, created_at, updated_at
		FROM wiki_pages
		WHERE wiki = $1 AND space = $2 AND page = $3 AND language = $4
	`

	unit := &domain.ContentUnit{Ref: ref}
	var createdAt, updatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, ref.Wiki, ref.Space, ref.Page, ref.Language).Scan(
		&unit.Title,
		&unit.Version,
		&unit.Author,
		&unit.Creator,
		&unit.Content,
		&unit.Syntax,
		&unit.Hidden,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	unit.CreationDate = TimeValue(createdAt)
	unit.Date = TimeValue(updatedAt)
	return unit, nil
}

func (s *ContentStore) getAttachment(ctx context.Context, ref domain.ContentRef) (*domain.ContentUnit, error) {
	query := `
		SELECT a.mime_type, a.size, a.data, a.version, a.author, a.created_at, a.updated_at, COALESCE(p.hidden, FALSE)
		FROM wiki_attachments a
		LEFT JOIN wiki_pages p
			ON p.wiki = a.wiki AND p.space = a.space AND p.page = a.page AND p.language = ''
		WHERE a.wiki = $1 AND a.space = $2 AND a.page = $3 AND a.filename = $4
	`

	unit := &domain.ContentUnit{Ref: ref, Title: ref.Filename}
	var createdAt, updatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, ref.Wiki, ref.Space, ref.Page, ref.Filename).Scan(
		&unit.MimeType,
		&unit.Size,
		&unit.Data,
		&unit.Version,
		&unit.Author,
		&createdAt,
		&updatedAt,
		&unit.Hidden,
	)
	if err != nil {
		return nil, err
	}
	unit.Creator = unit.Author
	unit.CreationDate = TimeValue(createdAt)
	unit.Date = TimeValue(updatedAt)
	return unit, nil
}

func (s *ContentStore) getObject(ctx context.Context, ref domain.ContentRef) (*domain.ContentUnit, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM wiki_objects
			WHERE wiki = $1 AND space = $2 AND page = $3 AND object_type = $4 AND object_number = $5
		)`, ref.Wiki, ref.Space, ref.Page, ref.ObjectType, ref.ObjectNumber).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, sql.ErrNoRows
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value
		FROM wiki_object_properties
		WHERE wiki = $1 AND space = $2 AND page = $3 AND object_type = $4 AND object_number = $5
		ORDER BY name
	`, ref.Wiki, ref.Space, ref.Page, ref.ObjectType, ref.ObjectNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	unit := &domain.ContentUnit{Ref: ref}
	for rows.Next() {
		var p domain.Property
		if err := rows.Scan(&p.Name, &p.Value); err != nil {
			return nil, err
		}
		unit.Properties = append(unit.Properties, p)
	}
	return unit, rows.Err()
}

func (s *ContentStore) getProperty(ctx context.Context, ref domain.ContentRef) (*domain.ContentUnit, error) {
	query := `
		SELECT value
		FROM wiki_object_properties
		WHERE wiki = $1 AND space = $2 AND page = $3 AND object_type = $4 AND object_number = $5 AND name = $6
	`

	unit := &domain.ContentUnit{Ref: ref}
	err := s.db.QueryRowContext(ctx, query,
		ref.Wiki, ref.Space, ref.Page, ref.ObjectType, ref.ObjectNumber, ref.PropertyName,
	).Scan(&unit.Value)
	if err != nil {
		return nil, err
	}
	unit.Properties = []domain.Property{{Name: ref.PropertyName, Value: unit.Value}}
	return unit, nil
}

// List enumerates each page translation inside scope followed by its dependents.
func (s *ContentStore) List(ctx context.Context, scope domain.Scope) ([]domain.ContentRef, error) {
	query, args := scopeQuery(`SELECT wiki, space, page, language FROM wiki_pages`, scope)
	query += " ORDER BY wiki, space, page, language"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var pages []domain.ContentRef
	for rows.Next() {
		ref := domain.ContentRef{Type: domain.UnitTypePage}
		if err := rows.Scan(&ref.Wiki, &ref.Space, &ref.Page, &ref.Language); err != nil {
			rows.Close()
			return nil, err
		}
		pages = append(pages, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]domain.ContentRef, 0, len(pages))
	for _, page := range pages {
		deps, err := s.Dependents(ctx, page)
		if err != nil {
			return nil, err
		}
		refs = append(refs, page)
		refs = append(refs, deps...)
	}
	return refs, nil
}

// scopeQuery appends a case-insensitive wiki/space condition to base.
func scopeQuery(base string, scope domain.Scope) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if scope.Wiki != "" {
		args = append(args, scope.Wiki)
		conds = append(conds, fmt.Sprintf("lower(wiki) = lower($%d)", len(args)))
	}
	if scope.Space != "" {
		args = append(args, scope.Space)
		conds = append(conds, fmt.Sprintf("lower(space) = lower($%d)", len(args)))
	}
	if len(conds) == 0 {
		return base, nil
	}
	return base + " WHERE " + strings.Join(conds, " AND "), args
}

// Dependents returns the page's attachments, objects and properties, read
// in one transaction so the three listings agree.
func (s *ContentStore) Dependents(ctx context.Context, page domain.ContentRef) ([]domain.ContentRef, error) {
	base := page.PageRef()
	var refs []domain.ContentRef

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT filename FROM wiki_attachments
			WHERE wiki = $1 AND space = $2 AND page = $3
			ORDER BY filename
		`, page.Wiki, page.Space, page.Page)
		if err != nil {
			return err
		}
		for rows.Next() {
			ref := base
			ref.Type = domain.UnitTypeAttachment
			if err := rows.Scan(&ref.Filename); err != nil {
				rows.Close()
				return err
			}
			refs = append(refs, ref)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		rows, err = tx.QueryContext(ctx, `
			SELECT o.object_type, o.object_number, COALESCE(p.name, '')
			FROM wiki_objects o
			LEFT JOIN wiki_object_properties p USING (wiki, space, page, object_type, object_number)
			WHERE o.wiki = $1 AND o.space = $2 AND o.page = $3
			ORDER BY o.object_type, o.object_number, p.name NULLS FIRST
		`, page.Wiki, page.Space, page.Page)
		if err != nil {
			return err
		}
		defer rows.Close()

		var last *domain.ContentRef
		for rows.Next() {
			var objType, propName string
			var number int
			if err := rows.Scan(&objType, &number, &propName); err != nil {
				return err
			}
			if last == nil || last.ObjectType != objType || last.ObjectNumber != number {
				obj := base
				obj.Type = domain.UnitTypeObject
				obj.ObjectType = objType
				obj.ObjectNumber = number
				refs = append(refs, obj)
				last = &obj
			}
			if propName != "" {
				prop := *last
				prop.Type = domain.UnitTypeProperty
				prop.PropertyName = propName
				refs = append(refs, prop)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list dependents of %s: %w", page, err)
	}
	return refs, nil
}
