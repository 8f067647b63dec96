package store

import (
	"context"
	"fmt"

	"welfareportal/pkg/types"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemeDocumentTableName = "scheme_documents"

var schemeDocumentColumns = []string{
	"scheme_id",
	"name",
	"required",
	"display_order",
}

type SchemeDocumentRepository struct {
	pool *pgxpool.Pool
}

func NewSchemeDocumentRepository(pool *pgxpool.Pool) *SchemeDocumentRepository {
	return &SchemeDocumentRepository{pool: pool}
}

// DocumentRequirements returns the documents a scheme asks for, in display
// order. These become the slots of an application draft.
func (r *SchemeDocumentRepository) DocumentRequirements(ctx context.Context, schemeID string) ([]*types.SchemeDocument, error) {
	query, args, err := psql().
		Select(schemeDocumentColumns...).
		From(schemeDocumentTableName).
		Where(squirrel.Eq{"scheme_id": schemeID}).
		OrderBy("display_order ASC", "name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate document requirements query: %w", err)
	}

	var docs []*types.SchemeDocument
	err = pgxscan.Select(ctx, r.pool, &docs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document requirements: %w", err)
	}
	return docs, nil
}

// ReplaceDocumentRequirements swaps a scheme's document list in one
// transaction.
func (r *SchemeDocumentRepository) ReplaceDocumentRequirements(ctx context.Context, schemeID string, docs []*types.SchemeDocument) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query, args, err := psql().
		Delete(schemeDocumentTableName).
		Where(squirrel.Eq{"scheme_id": schemeID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete requirements query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete document requirements: %w", err)
	}

	if len(docs) > 0 {
		insert := psql().Insert(schemeDocumentTableName).Columns(schemeDocumentColumns...)
		for i, doc := range docs {
			insert = insert.Values(schemeID, doc.Name, doc.Required, i+1)
		}

		query, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate insert requirements query: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert document requirements: %w", err)
		}
	}

	return tx.Commit(ctx)
}
