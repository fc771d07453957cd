package memstore

import (
	"strings"
	"time"

	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/query"
	"github.com/bigyanadk07/BugTracker/store"
)

type predicate func(model.Bug) bool

// compile validates every condition up front so a bad plan fails even
// when there is nothing to scan.
func compile(filter query.Filter) (predicate, error) {
	preds := make([]predicate, 0, len(filter))
	for _, cond := range filter {
		field, err := store.BugField(cond.Field)
		if err != nil {
			return nil, err
		}
		if err := store.CheckOperator(cond.Op); err != nil {
			return nil, err
		}
		pred, err := conditionPredicate(field, cond)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}

	return func(bug model.Bug) bool {
		for _, pred := range preds {
			if !pred(bug) {
				return false
			}
		}
		return true
	}, nil
}

func conditionPredicate(field store.Field, cond query.Condition) (predicate, error) {
	if field.Kind == store.KindTime {
		targets := make([]time.Time, 0, len(cond.Values))
		for _, raw := range cond.Values {
			t, err := store.ParseTime(raw)
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
		}
		return func(bug model.Bug) bool {
			value := timeValue(bug, field.Name)
			return matchAny(cond.Op, len(targets), func(i int) int { return value.Compare(targets[i]) })
		}, nil
	}

	targets := append([]string(nil), cond.Values...)
	return func(bug model.Bug) bool {
		value, present := stringValue(bug, field.Name)
		if !present {
			return false
		}
		return matchAny(cond.Op, len(targets), func(i int) int { return strings.Compare(value, targets[i]) })
	}, nil
}

// matchAny applies op to each comparison result; equality and membership
// need one hit, range operators carry a single value.
func matchAny(op string, n int, cmp func(i int) int) bool {
	for i := 0; i < n; i++ {
		c := cmp(i)
		var ok bool
		switch op {
		case query.OpEq, query.OpIn:
			ok = c == 0
		case query.OpGt:
			ok = c > 0
		case query.OpGte:
			ok = c >= 0
		case query.OpLt:
			ok = c < 0
		case query.OpLte:
			ok = c <= 0
		}
		if ok {
			return true
		}
	}
	return false
}

func stringValue(bug model.Bug, name string) (string, bool) {
	switch name {
	case "id":
		return bug.ID, true
	case "title":
		return bug.Title, true
	case "description":
		return bug.Description, true
	case "priority":
		return string(bug.Priority), true
	case "status":
		return string(bug.Status), true
	case "createdBy":
		return bug.CreatedBy, true
	case "assignedTo":
		if bug.AssignedTo == nil {
			return "", false
		}
		return *bug.AssignedTo, true
	}
	return "", false
}

func timeValue(bug model.Bug, name string) time.Time {
	if name == "updatedAt" {
		return bug.UpdatedAt
	}
	return bug.CreatedAt
}

func ordering(keys []query.SortKey) (func(a, b model.Bug) bool, error) {
	fields := make([]store.Field, 0, len(keys))
	for _, key := range keys {
		field, err := store.BugField(key.Field)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}

	return func(a, b model.Bug) bool {
		for i, field := range fields {
			var c int
			if field.Kind == store.KindTime {
				c = timeValue(a, field.Name).Compare(timeValue(b, field.Name))
			} else {
				av, _ := stringValue(a, field.Name)
				bv, _ := stringValue(b, field.Name)
				c = strings.Compare(av, bv)
			}
			if c == 0 {
				continue
			}
			if keys[i].Desc {
				return c > 0
			}
			return c < 0
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	}, nil
}
