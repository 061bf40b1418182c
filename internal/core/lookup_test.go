package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupByID(t *testing.T) {
	ns := testNotifications()

	n := LookupByID(ns, 12)
	if assert.NotNil(t, n) {
		assert.Equal(t, "New forum post", n.Subject)
	}
	assert.Nil(t, LookupByID(ns, 99))
}

func TestLookupByIndex(t *testing.T) {
	ns := testNotifications()

	n := LookupByIndex(ns, 1)
	if assert.NotNil(t, n) {
		assert.Equal(t, int64(11), n.ID)
	}
	assert.Nil(t, LookupByIndex(ns, 0))
	assert.Nil(t, LookupByIndex(ns, 4))
}

func TestLookup_Selectors(t *testing.T) {
	ns := testNotifications()

	tests := []struct {
		selector string
		expected int64 // 0 = not found
	}{
		{"2", 12},
		{" 3 ", 13},
		{"#13", 13},
		{"id:11", 11},
		{"2 | 3 days ago | New forum post", 12},
		{"#abc", 0},
		{"9", 0},
		{"forum", 0},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			n := Lookup(ns, tt.selector)
			if tt.expected == 0 {
				assert.Nil(t, n)
				return
			}
			if assert.NotNil(t, n) {
				assert.Equal(t, tt.expected, n.ID)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	ns := testNotifications()

	assert.Equal(t, ns, Search(ns, ""))
	assert.Equal(t, []int64{11}, ids(Search(ns, "DEADLINE")))
	assert.Equal(t, []int64{12}, ids(Search(ns, "forum")))
	assert.Empty(t, Search(ns, "nothing matches"))
}
