// Package core provides filtering, sorting, and lookup over fetched
// notifications for the one-shot commands.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="
	FilterOpNotEqual  FilterOp = "!="
	FilterOpContains  FilterOp = "~"
	FilterOpRegex     FilterOp = "~="
	FilterOpGreater   FilterOp = ">"
	FilterOpLess      FilterOp = "<"
	FilterOpGreaterEq FilterOp = ">="
	FilterOpLessEq    FilterOp = "<="
)

// Longest first so "!=" is not read as "=".
var operatorPrecedence = []FilterOp{
	FilterOpNotEqual,
	FilterOpGreaterEq,
	FilterOpLessEq,
	FilterOpRegex,
	FilterOpEqual,
	FilterOpContains,
	FilterOpGreater,
	FilterOpLess,
}

// Filter fields.
const (
	FieldSubject = "subject"
	FieldText    = "text"
	FieldLink    = "link"
	FieldID      = "id"
	FieldUser    = "user"
	FieldCreated = "created"
)

// FilterCondition is one "field op value" term.
type FilterCondition struct {
	Field    string
	Operator FilterOp
	Value    string

	regex  *regexp.Regexp
	intVal int64
	cutoff time.Time // created: now minus the parsed duration
}

// FilterExpr is a list of conditions that must all match.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions are the simple flag-driven filters.
type FilterOptions struct {
	Since time.Duration // keep notifications newer than now-Since (0 = all)
	Limit int           // 0 = unlimited
}

// Filter applies opts. Notifications without a creation time are kept by
// Since, since their age is unknown.
func Filter(ns []model.Notification, opts FilterOptions) []model.Notification {
	return filterAt(ns, opts, time.Now())
}

func filterAt(ns []model.Notification, opts FilterOptions, now time.Time) []model.Notification {
	result := make([]model.Notification, 0, len(ns))
	cutoff := now.Add(-opts.Since)

	for _, n := range ns {
		if opts.Since > 0 && n.TimeCreated > 0 && n.CreatedAt().Before(cutoff) {
			continue
		}
		result = append(result, n)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// ParseDuration parses a duration with day and week suffixes as well as
// the time.ParseDuration forms: 48h, 7d, 1w. "0" and "" mean no limit.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	for suffix, unit := range map[string]time.Duration{
		"d": 24 * time.Hour,
		"w": 7 * 24 * time.Hour,
	} {
		if count, ok := strings.CutSuffix(s, suffix); ok {
			n, err := strconv.Atoi(count)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid duration: %s", s)
			}
			return time.Duration(n) * unit, nil
		}
	}

	return time.ParseDuration(s)
}

// ParseFilter parses a comma-separated list of conditions.
//
// Fields: subject, text, link, id, user, created.
// Operators: = != ~ (contains) ~= (regex) > < >= <=.
// created compares against a relative age, so "created>1d" means newer
// than a day ago.
//
// Examples:
//   - "subject~quiz"
//   - "text~=(?i)deadline"
//   - "user=7,created>12h"
func ParseFilter(expr string) (*FilterExpr, error) {
	return parseFilterAt(expr, time.Now())
}

func parseFilterAt(expr string, now time.Time) (*FilterExpr, error) {
	f := &FilterExpr{}
	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cond, err := parseCondition(part, now)
		if err != nil {
			return nil, err
		}
		f.Conditions = append(f.Conditions, cond)
	}
	return f, nil
}

func parseCondition(s string, now time.Time) (FilterCondition, error) {
	for _, op := range operatorPrecedence {
		idx := strings.Index(s, string(op))
		if idx <= 0 {
			continue
		}
		cond := FilterCondition{
			Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
			Operator: op,
			Value:    strings.TrimSpace(s[idx+len(op):]),
		}
		if err := cond.init(now); err != nil {
			return FilterCondition{}, err
		}
		return cond, nil
	}
	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

func (c *FilterCondition) init(now time.Time) error {
	switch c.Field {
	case "subject", "title", "summary":
		c.Field = FieldSubject
	case "text", "body", "detail":
		c.Field = FieldText
	case "link", "url", "contexturl":
		c.Field = FieldLink
	case "id", "user", "useridto":
		if c.Field == "useridto" {
			c.Field = FieldUser
		}
		v, err := strconv.ParseInt(c.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s value: %s", c.Field, c.Value)
		}
		c.intVal = v
	case "created", "time", "timecreated":
		c.Field = FieldCreated
		d, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid created value: %w", err)
		}
		c.cutoff = now.Add(-d)
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}
	return nil
}

// Match reports whether n satisfies every condition.
func (f *FilterExpr) Match(n model.Notification) bool {
	for i := range f.Conditions {
		if !f.Conditions[i].Match(n) {
			return false
		}
	}
	return true
}

// Match reports whether n satisfies c.
func (c *FilterCondition) Match(n model.Notification) bool {
	switch c.Field {
	case FieldSubject:
		return c.matchString(n.Subject)
	case FieldText:
		if n.Text == nil {
			return c.matchString("")
		}
		return c.matchString(*n.Text)
	case FieldLink:
		return c.matchString(n.Link(""))
	case FieldID:
		return c.matchInt(n.ID)
	case FieldUser:
		return c.matchInt(n.UserIDTo)
	case FieldCreated:
		if n.TimeCreated == 0 {
			return false
		}
		return c.matchTime(n.CreatedAt())
	default:
		return false
	}
}

func (c *FilterCondition) matchString(v string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return v == c.Value
	case FilterOpNotEqual:
		return v != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(v)
	default:
		return false
	}
}

func (c *FilterCondition) matchInt(v int64) bool {
	switch c.Operator {
	case FilterOpEqual:
		return v == c.intVal
	case FilterOpNotEqual:
		return v != c.intVal
	case FilterOpGreater:
		return v > c.intVal
	case FilterOpLess:
		return v < c.intVal
	case FilterOpGreaterEq:
		return v >= c.intVal
	case FilterOpLessEq:
		return v <= c.intVal
	default:
		return false
	}
}

// matchTime compares against the cutoff: ">" is newer than, "<" older than.
func (c *FilterCondition) matchTime(t time.Time) bool {
	switch c.Operator {
	case FilterOpGreater:
		return t.After(c.cutoff)
	case FilterOpLess:
		return t.Before(c.cutoff)
	case FilterOpGreaterEq:
		return !t.Before(c.cutoff)
	case FilterOpLessEq:
		return !t.After(c.cutoff)
	default:
		return false
	}
}

// FilterWithExpr returns the notifications matching expr.
func FilterWithExpr(ns []model.Notification, expr *FilterExpr) []model.Notification {
	if expr == nil || len(expr.Conditions) == 0 {
		return ns
	}
	result := make([]model.Notification, 0, len(ns))
	for _, n := range ns {
		if expr.Match(n) {
			result = append(result, n)
		}
	}
	return result
}
