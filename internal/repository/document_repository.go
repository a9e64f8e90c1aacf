package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/model"
)

// DocumentRepo is the generic store behind the ancillary modules. Each
// record is a JSON object tagged with its kind; filters address top-level
// body fields by name.
type DocumentRepo struct{ db *sql.DB }

func NewDocumentRepo(db *sql.DB) *DocumentRepo { return &DocumentRepo{db: db} }

// DocQuery selects documents of one kind.
type DocQuery struct {
	Kind     string
	Equals   map[string]string // body field = value
	Contains map[string]string // body field contains value, case-insensitive
	// Search matches when any of SearchFields contains it, case-insensitive.
	Search       string
	SearchFields []string
	// RangeField names the body field the From/To bounds apply to; empty
	// means the row's created_at.
	RangeField string
	From, To   *time.Time
	Page       int
	Limit      int // 0 = no paging
}

// body field names are interpolated into JSON paths, so they are restricted
// to plain identifiers
var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func jsonPath(field string) (string, error) {
	if !fieldName.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return "$." + field, nil
}

const documentColumns = `id, kind, body, unique_key, created_by, created_at, updated_at`

func scanDocument(row rowScanner) (model.Document, error) {
	var (
		d         model.Document
		body      []byte
		key       sql.NullString
		createdBy sql.NullInt64
	)
	if err := row.Scan(&d.ID, &d.Kind, &body, &key, &createdBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return model.Document{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&d.Body); err != nil {
		return model.Document{}, fmt.Errorf("decode %s body: %w", d.Kind, err)
	}
	if d.Body == nil {
		d.Body = map[string]any{}
	}
	if key.Valid {
		d.UniqueKey = &key.String
	}
	d.CreatedBy = nullID(createdBy)
	return d, nil
}

// Insert assigns an id and stores the document. A clash on the unique key
// within the kind is reported as ErrDuplicate.
func (r *DocumentRepo) Insert(ctx context.Context, d *model.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	body, err := json.Marshal(d.Body)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO documents (id, kind, body, unique_key, created_by, created_at, updated_at) VALUES (?,?,?,?,?,?,?)`,
		d.ID, d.Kind, string(body), d.UniqueKey, d.CreatedBy, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	d.CreatedAt, d.UpdatedAt = now, now
	return nil
}

func (r *DocumentRepo) Get(ctx context.Context, kind, id string) (model.Document, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE kind = ? AND id = ?`, kind, id))
	return d, notFound(err)
}

// Update rewrites body and unique key.
func (r *DocumentRepo) Update(ctx context.Context, d *model.Document) error {
	body, err := json.Marshal(d.Body)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET body = ?, unique_key = ?, updated_at = ? WHERE kind = ? AND id = ?`,
		string(body), d.UniqueKey, now, d.Kind, d.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	d.UpdatedAt = now
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, kind, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// where renders the query's filters. Map iteration is sorted so the SQL is
// stable.
func (q DocQuery) where() (string, []any, error) {
	where := []string{"kind = ?"}
	args := []any{q.Kind}
	for _, field := range sortedKeys(q.Equals) {
		path, err := jsonPath(field)
		if err != nil {
			return "", nil, err
		}
		where = append(where, "JSON_UNQUOTE(JSON_EXTRACT(body, ?)) = ?")
		args = append(args, path, q.Equals[field])
	}
	for _, field := range sortedKeys(q.Contains) {
		path, err := jsonPath(field)
		if err != nil {
			return "", nil, err
		}
		where = append(where, "LOWER(JSON_UNQUOTE(JSON_EXTRACT(body, ?))) LIKE ?")
		args = append(args, path, "%"+strings.ToLower(q.Contains[field])+"%")
	}
	if q.Search != "" && len(q.SearchFields) > 0 {
		ors := make([]string, 0, len(q.SearchFields))
		for _, field := range q.SearchFields {
			path, err := jsonPath(field)
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, "LOWER(JSON_UNQUOTE(JSON_EXTRACT(body, ?))) LIKE ?")
			args = append(args, path, "%"+strings.ToLower(q.Search)+"%")
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	if q.From != nil || q.To != nil {
		col := "created_at"
		var from, to any
		if q.From != nil {
			from = *q.From
		}
		if q.To != nil {
			to = *q.To
		}
		if q.RangeField != "" {
			path, err := jsonPath(q.RangeField)
			if err != nil {
				return "", nil, err
			}
			// body timestamps are RFC 3339 UTC strings, which order lexically
			col = "JSON_UNQUOTE(JSON_EXTRACT(body, '" + path + "'))"
			if q.From != nil {
				from = q.From.UTC().Format(time.RFC3339)
			}
			if q.To != nil {
				to = q.To.UTC().Format(time.RFC3339)
			}
		}
		if q.From != nil {
			where = append(where, col+" >= ?")
			args = append(args, from)
		}
		if q.To != nil {
			where = append(where, col+" <= ?")
			args = append(args, to)
		}
	}
	return strings.Join(where, " AND "), args, nil
}

// Find returns matching documents newest first and the total match count.
func (r *DocumentRepo) Find(ctx context.Context, q DocQuery) ([]model.Document, int, error) {
	cond, args, err := q.where()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	sqlText := `SELECT ` + documentColumns + ` FROM documents WHERE ` + cond + ` ORDER BY created_at DESC, id`
	if q.Limit > 0 {
		page, limit := pageBounds(q.Page, q.Limit, q.Limit)
		sqlText += ` LIMIT ? OFFSET ?`
		args = append(args, limit, (page-1)*limit)
	}
	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// Sum adds up a numeric body field over the matching documents.
func (r *DocumentRepo) Sum(ctx context.Context, q DocQuery, field string) (decimal.Decimal, error) {
	path, err := jsonPath(field)
	if err != nil {
		return decimal.Zero, err
	}
	cond, args, err := q.where()
	if err != nil {
		return decimal.Zero, err
	}
	var sum decimal.Decimal
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CAST(JSON_UNQUOTE(JSON_EXTRACT(body, ?)) AS DECIMAL(14,2))), 0) FROM documents WHERE `+cond,
		append([]any{path}, args...)...).Scan(&sum)
	return sum, err
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
