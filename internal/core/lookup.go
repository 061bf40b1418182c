package core

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// LookupByID finds a notification by its Moodle id. Returns nil if not found.
func LookupByID(ns []model.Notification, id int64) *model.Notification {
	for i := range ns {
		if ns[i].ID == id {
			return &ns[i]
		}
	}
	return nil
}

// LookupByIndex finds a notification by its 1-based position.
// Returns nil if index is out of bounds.
func LookupByIndex(ns []model.Notification, index int) *model.Notification {
	idx := index - 1
	if idx < 0 || idx >= len(ns) {
		return nil
	}
	return &ns[idx]
}

// Lookup resolves a user-supplied selector: "#123" or "id:123" is a Moodle
// id, a bare number is a 1-based index, and a dmenu line ("2 | 5 mins ago |
// ...") resolves by its leading index.
func Lookup(ns []model.Notification, selector string) *model.Notification {
	selector = strings.TrimSpace(selector)

	for _, prefix := range []string{"#", "id:"} {
		if rest, ok := strings.CutPrefix(selector, prefix); ok {
			id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
			if err != nil {
				return nil
			}
			return LookupByID(ns, id)
		}
	}

	head, _, _ := strings.Cut(selector, "|")
	idx, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return nil
	}
	return LookupByIndex(ns, idx)
}

// Search returns notifications whose subject or text contains term,
// case-insensitively.
func Search(ns []model.Notification, term string) []model.Notification {
	if term == "" {
		return ns
	}

	term = strings.ToLower(term)
	var result []model.Notification
	for _, n := range ns {
		text := ""
		if n.Text != nil {
			text = *n.Text
		}
		if strings.Contains(strings.ToLower(n.Subject), term) ||
			strings.Contains(strings.ToLower(text), term) {
			result = append(result, n)
		}
	}
	return result
}
