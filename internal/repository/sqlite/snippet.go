package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/snippet-shelf/internal/apperror"
	"github.com/sakif/snippet-shelf/internal/model"
	"github.com/sakif/snippet-shelf/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB stops satisfying repository.RemoteStore, the build fails here
// rather than somewhere far away in server wiring.
var _ repository.RemoteStore = (*DB)(nil)

const snippetColumns = `id, owner_id, kind, title, body, language, rich_preview_html,
	tags, variable_placeholders, is_pinned, use_count, last_used_at, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSnippet reads one row in snippetColumns order.
// Tags and placeholders are stored as JSON arrays in TEXT columns.
func scanSnippet(row rowScanner) (*model.Snippet, error) {
	var (
		s          model.Snippet
		tags, vars string
		pinned     int
	)
	if err := row.Scan(
		&s.ID, &s.OwnerID, &s.Kind, &s.Title, &s.Body, &s.Language, &s.RichPreviewHTML,
		&tags, &vars, &pinned, &s.UseCount, &s.LastUsedAt, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.IsPinned = pinned != 0
	if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of %s: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(vars), &s.VariablePlaceholders); err != nil {
		return nil, fmt.Errorf("decoding placeholders of %s: %w", s.ID, err)
	}
	return &s, nil
}

// encodeList stores nil as "[]" so a decoded snippet never has a nil slice.
func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// List returns every snippet of ownerID, newest first.
// Rows with equal created_at come back in whatever order SQLite yields.
func (db *DB) List(ctx context.Context, ownerID string) ([]model.Snippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets
		 WHERE owner_id = ?
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets for %s: %w", ownerID, err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	snippets := make([]model.Snippet, 0)
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return snippets, nil
}

// Get retrieves one snippet, scoped to ownerID.
// A snippet that exists under a different owner is reported as not found.
func (db *DB) Get(ctx context.Context, ownerID, id string) (*model.Snippet, error) {
	s, err := scanSnippet(db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets
		 WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}
	return s, nil
}

// Insert stores a new snippet under a fresh xid and returns that id.
// Any id already on the snippet is ignored: remote ids are only ever minted here.
func (db *DB) Insert(ctx context.Context, snippet *model.Snippet) (string, error) {
	if snippet.OwnerID == "" || snippet.OwnerID == model.LocalOwner {
		return "", fmt.Errorf("sqlite: inserting snippet: owner id is required")
	}

	snippet.ID = model.NewRemoteID()
	if snippet.CreatedAt == 0 {
		snippet.CreatedAt = model.Millis(time.Now())
	}
	if snippet.UpdatedAt == 0 {
		snippet.UpdatedAt = snippet.CreatedAt
	}

	tags, err := encodeList(snippet.Tags)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	vars, err := encodeList(snippet.VariablePlaceholders)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding placeholders: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO snippets (`+snippetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.OwnerID,
		snippet.Kind,
		snippet.Title,
		snippet.Body,
		snippet.Language,
		snippet.RichPreviewHTML,
		tags,
		vars,
		boolToInt(snippet.IsPinned),
		snippet.UseCount,
		snippet.LastUsedAt,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return snippet.ID, nil
}

// Update overwrites every mutable column of an existing snippet.
// id, owner_id and created_at are never touched.
//
// RowsAffected() == 0 means the WHERE clause matched nothing: either the id
// doesn't exist or it belongs to someone else. Both are "not found".
func (db *DB) Update(ctx context.Context, ownerID string, snippet *model.Snippet) error {
	tags, err := encodeList(snippet.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	vars, err := encodeList(snippet.VariablePlaceholders)
	if err != nil {
		return fmt.Errorf("sqlite: encoding placeholders: %w", err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET kind = ?, title = ?, body = ?, language = ?, rich_preview_html = ?,
		     tags = ?, variable_placeholders = ?, is_pinned = ?, use_count = ?,
		     last_used_at = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		snippet.Kind,
		snippet.Title,
		snippet.Body,
		snippet.Language,
		snippet.RichPreviewHTML,
		tags,
		vars,
		boolToInt(snippet.IsPinned),
		snippet.UseCount,
		snippet.LastUsedAt,
		snippet.UpdatedAt,
		snippet.ID,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	return nil
}

// Delete removes a snippet owned by ownerID.
// Same pattern as Update: check RowsAffected to detect "not found".
func (db *DB) Delete(ctx context.Context, ownerID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}

	return nil
}
