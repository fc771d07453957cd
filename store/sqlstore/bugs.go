package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bigyanadk07/BugTracker/db"
	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/query"
	"github.com/bigyanadk07/BugTracker/store"
)

var commentColumns = []string{"id", "bug_id", "text", "created_by", "created_at", "updated_at"}

// FindMany implements store.BugStore.
func (s *Store) FindMany(ctx context.Context, plan query.Plan) ([]model.Bug, error) {
	if plan.Skip < 0 {
		return []model.Bug{}, nil
	}
	where, args, err := compileFilter(plan.Filter)
	if err != nil {
		return nil, err
	}
	order, err := compileSort(plan.Sort)
	if err != nil {
		return nil, err
	}

	b := db.Select(bugColumns...).From("bugs").Where(where, args...).OrderBy(order...).Dialect(s.dialect)
	if plan.Limit > 0 {
		b = b.Limit(plan.Limit)
	}
	if plan.Skip > 0 {
		b = b.Offset(plan.Skip)
	}
	stmt, stmtArgs, err := b.Build()
	if err != nil {
		return nil, err
	}

	bugs, err := s.scanBugs(ctx, s.q, stmt, stmtArgs...)
	if err != nil {
		return nil, err
	}
	if err := s.attachComments(ctx, s.q, bugs); err != nil {
		return nil, err
	}
	return bugs, nil
}

// Count implements store.BugStore.
func (s *Store) Count(ctx context.Context, filter query.Filter) (int, error) {
	where, args, err := compileFilter(filter)
	if err != nil {
		return 0, err
	}
	stmt, stmtArgs, err := db.Select("COUNT(*)").From("bugs").Where(where, args...).Dialect(s.dialect).Build()
	if err != nil {
		return 0, err
	}

	row, cancel := s.helper.QueryRow(ctx, s.q, stmt, stmtArgs...)
	defer cancel()
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count bugs: %w", err)
	}
	return n, nil
}

// FindByID implements store.BugStore.
func (s *Store) FindByID(ctx context.Context, id string) (*model.Bug, error) {
	return s.findByID(ctx, s.q, id)
}

func (s *Store) findByID(ctx context.Context, q db.QueryDB, id string) (*model.Bug, error) {
	stmt, args, err := db.Select(bugColumns...).From("bugs").Where("id = ?", id).Dialect(s.dialect).Build()
	if err != nil {
		return nil, err
	}
	bugs, err := s.scanBugs(ctx, q, stmt, args...)
	if err != nil {
		return nil, err
	}
	if len(bugs) == 0 {
		return nil, store.ErrNotFound
	}
	if err := s.attachComments(ctx, q, bugs); err != nil {
		return nil, err
	}
	return &bugs[0], nil
}

// Insert implements store.BugStore.
func (s *Store) Insert(ctx context.Context, bug model.Bug) (*model.Bug, error) {
	now := s.timestamp()
	bug.ID = uuid.NewString()
	bug.CreatedAt = now
	bug.UpdatedAt = now
	bug.Comments = []model.Comment{}

	stmt, args, err := db.Insert("bugs").
		Columns(bugColumns...).
		Values(bug.ID, bug.Title, bug.Description, string(bug.Priority), string(bug.Status), bug.CreatedBy, nullable(bug.AssignedTo), toMillis(now), toMillis(now)).
		Dialect(s.dialect).
		Build()
	if err != nil {
		return nil, err
	}
	if _, err := s.helper.Exec(ctx, s.q, stmt, args...); err != nil {
		return nil, fmt.Errorf("insert bug: %w", err)
	}
	return &bug, nil
}

// UpdateByID implements store.BugStore.
func (s *Store) UpdateByID(ctx context.Context, id string, patch model.BugPatch) (*model.Bug, error) {
	b := db.Update("bugs").Set("updated_at", toMillis(s.timestamp()))
	if patch.Title != nil {
		b = b.Set("title", *patch.Title)
	}
	if patch.Description != nil {
		b = b.Set("description", *patch.Description)
	}
	if patch.Priority != nil {
		b = b.Set("priority", string(*patch.Priority))
	}
	if patch.Status != nil {
		b = b.Set("status", string(*patch.Status))
	}
	switch {
	case patch.ClearAssignee:
		b = b.Set("assigned_to", nil)
	case patch.AssignedTo != nil:
		b = b.Set("assigned_to", *patch.AssignedTo)
	}
	stmt, args, err := b.Where("id = ?", id).Dialect(s.dialect).Build()
	if err != nil {
		return nil, err
	}

	res, err := s.helper.Exec(ctx, s.q, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("update bug: %w", err)
	}
	if err := expectRow(res); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}

// DeleteByID implements store.BugStore. Comments go with the bug.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, args, err := db.Delete("comments").Where("bug_id = ?", id).Dialect(s.dialect).Build()
		if err != nil {
			return err
		}
		if _, err := s.helper.Exec(ctx, tx, stmt, args...); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}

		stmt, args, err = db.Delete("bugs").Where("id = ?", id).Dialect(s.dialect).Build()
		if err != nil {
			return err
		}
		res, err := s.helper.Exec(ctx, tx, stmt, args...)
		if err != nil {
			return fmt.Errorf("delete bug: %w", err)
		}
		return expectRow(res)
	})
}

// AddComment implements store.BugStore.
func (s *Store) AddComment(ctx context.Context, bugID string, comment model.Comment) (*model.Comment, error) {
	now := s.timestamp()
	comment.ID = uuid.NewString()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.bugExists(ctx, tx, bugID); err != nil {
			return err
		}
		stmt, args, err := db.Insert("comments").
			Columns(commentColumns...).
			Values(comment.ID, bugID, comment.Text, comment.CreatedBy, toMillis(now), toMillis(now)).
			Dialect(s.dialect).
			Build()
		if err != nil {
			return err
		}
		if _, err := s.helper.Exec(ctx, tx, stmt, args...); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment implements store.BugStore.
func (s *Store) DeleteComment(ctx context.Context, bugID, commentID string) error {
	stmt, args, err := db.Delete("comments").Where("bug_id = ?", bugID).Where("id = ?", commentID).Dialect(s.dialect).Build()
	if err != nil {
		return err
	}
	res, err := s.helper.Exec(ctx, s.q, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return expectRow(res)
}

func (s *Store) bugExists(ctx context.Context, q db.QueryDB, id string) error {
	stmt, args, err := db.Select("COUNT(*)").From("bugs").Where("id = ?", id).Dialect(s.dialect).Build()
	if err != nil {
		return err
	}
	row, cancel := s.helper.QueryRow(ctx, q, stmt, args...)
	defer cancel()
	var n int
	if err := row.Scan(&n); err != nil {
		return fmt.Errorf("find bug: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) scanBugs(ctx context.Context, q db.QueryDB, stmt string, args ...any) ([]model.Bug, error) {
	rows, cancel, err := s.helper.Query(ctx, q, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query bugs: %w", err)
	}
	defer cancel()
	defer rows.Close()

	bugs := make([]model.Bug, 0)
	for rows.Next() {
		var bug model.Bug
		var priority, status string
		var assigned sql.NullString
		var created, updated int64
		if err := rows.Scan(&bug.ID, &bug.Title, &bug.Description, &priority, &status, &bug.CreatedBy, &assigned, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan bug: %w", err)
		}
		bug.Priority = model.Priority(priority)
		bug.Status = model.Status(status)
		if assigned.Valid {
			value := assigned.String
			bug.AssignedTo = &value
		}
		bug.CreatedAt = fromMillis(created)
		bug.UpdatedAt = fromMillis(updated)
		bug.Comments = []model.Comment{}
		bugs = append(bugs, bug)
	}
	return bugs, rows.Err()
}

// attachComments loads the comments of every bug in one query.
func (s *Store) attachComments(ctx context.Context, q db.QueryDB, bugs []model.Bug) error {
	if len(bugs) == 0 {
		return nil
	}
	ids := make([]any, len(bugs))
	index := make(map[string]int, len(bugs))
	for i, bug := range bugs {
		ids[i] = bug.ID
		index[bug.ID] = i
	}

	stmt, args, err := db.Select(commentColumns...).
		From("comments").
		Where(db.In("bug_id", len(ids)), ids...).
		OrderBy("created_at ASC", "id ASC").
		Dialect(s.dialect).
		Build()
	if err != nil {
		return err
	}
	rows, cancel, err := s.helper.Query(ctx, q, stmt, args...)
	if err != nil {
		return fmt.Errorf("query comments: %w", err)
	}
	defer cancel()
	defer rows.Close()

	for rows.Next() {
		var comment model.Comment
		var bugID string
		var created, updated int64
		if err := rows.Scan(&comment.ID, &bugID, &comment.Text, &comment.CreatedBy, &created, &updated); err != nil {
			return fmt.Errorf("scan comment: %w", err)
		}
		comment.CreatedAt = fromMillis(created)
		comment.UpdatedAt = fromMillis(updated)
		if i, ok := index[bugID]; ok {
			bugs[i].Comments = append(bugs[i].Comments, comment)
		}
	}
	return rows.Err()
}

// compileFilter renders filter as one WHERE condition with "?" placeholders.
func compileFilter(filter query.Filter) (string, []any, error) {
	clauses := make([]string, 0, len(filter))
	var args []any
	for _, cond := range filter {
		field, err := store.BugField(cond.Field)
		if err != nil {
			return "", nil, err
		}
		if err := store.CheckOperator(cond.Op); err != nil {
			return "", nil, err
		}
		values, err := columnValues(field, cond.Values)
		if err != nil {
			return "", nil, err
		}

		switch cond.Op {
		case query.OpEq, query.OpIn:
			if len(values) == 1 {
				clauses = append(clauses, field.Column+" = ?")
			} else {
				clauses = append(clauses, db.In(field.Column, len(values)))
			}
		default:
			parts := make([]string, len(values))
			for i := range values {
				parts[i] = field.Column + " " + comparison[cond.Op] + " ?"
			}
			switch len(parts) {
			case 0:
				clauses = append(clauses, "1 = 0")
			case 1:
				clauses = append(clauses, parts[0])
			default:
				clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
			}
		}
		args = append(args, values...)
	}
	return strings.Join(clauses, " AND "), args, nil
}

var comparison = map[string]string{
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

func columnValues(field store.Field, raw []string) ([]any, error) {
	values := make([]any, 0, len(raw))
	for _, value := range raw {
		if field.Kind == store.KindTime {
			t, err := store.ParseTime(value)
			if err != nil {
				return nil, err
			}
			values = append(values, toMillis(t))
			continue
		}
		values = append(values, value)
	}
	return values, nil
}

// compileSort renders ORDER BY terms. Ties fall back to creation time, then id.
func compileSort(keys []query.SortKey) ([]string, error) {
	terms := make([]string, 0, len(keys)+2)
	for _, key := range keys {
		field, err := store.BugField(key.Field)
		if err != nil {
			return nil, err
		}
		direction := " ASC"
		if key.Desc {
			direction = " DESC"
		}
		terms = append(terms, field.Column+direction)
	}
	return append(terms, "created_at ASC", "id ASC"), nil
}

func nullable(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

