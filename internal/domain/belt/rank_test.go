package belt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/internal/domain/shared"
)

func TestIsAtLeastAsAdvanced(t *testing.T) {
	cat := StandardCatalog()
	dan, _ := cat.ByID("1st_dan")
	white, _ := cat.ByID("10th_keup")
	yellow, _ := cat.ByID("8th_keup")

	assert.True(t, IsAtLeastAsAdvanced(dan, white))
	assert.False(t, IsAtLeastAsAdvanced(white, dan))
	assert.True(t, IsAtLeastAsAdvanced(yellow, yellow))
	assert.True(t, IsAtLeastAsAdvanced(yellow, white))
}

func TestIsAtLeastAsAdvanced_IgnoresNames(t *testing.T) {
	// Name suggests seniority, sort order says otherwise.
	a := Rank{ID: "a", Name: "1st Dan", SortOrder: 9}
	b := Rank{ID: "b", Name: "10th Keup", SortOrder: 2}

	assert.False(t, IsAtLeastAsAdvanced(a, b))
	assert.True(t, IsAtLeastAsAdvanced(b, a))
}

func TestCompare_EqualSortOrderIsTotal(t *testing.T) {
	a := Rank{ID: "a", SortOrder: 4}
	b := Rank{ID: "b", SortOrder: 4}

	assert.Equal(t, 0, Compare(a, b))
	assert.Equal(t, 0, Compare(b, a))
	assert.True(t, IsAtLeastAsAdvanced(a, b))
	assert.True(t, IsAtLeastAsAdvanced(b, a))
}

func TestCatalog_OrderedJuniorFirst(t *testing.T) {
	cat := StandardCatalog()
	ranks := cat.Ordered()

	require.Len(t, ranks, 15)
	assert.Equal(t, "10th_keup", ranks[0].ID)
	assert.Equal(t, "5th_dan", ranks[len(ranks)-1].ID)
	for i := 1; i < len(ranks); i++ {
		assert.Equal(t, 1, Compare(ranks[i-1], ranks[i]), "%s should be junior to %s", ranks[i-1].ID, ranks[i].ID)
	}
	assert.Equal(t, "10th_keup", cat.MostJunior().ID)
	assert.Equal(t, "5th_dan", cat.MostAdvanced().ID)
}

func TestCatalog_Next(t *testing.T) {
	cat := StandardCatalog()
	first, _ := cat.ByID("1st_keup")

	next, ok := cat.Next(first)
	require.True(t, ok)
	assert.Equal(t, "1st_dan", next.ID)

	_, ok = cat.Next(cat.MostAdvanced())
	assert.False(t, ok)
}

func TestNewCatalog_Validation(t *testing.T) {
	tests := []struct {
		name  string
		ranks []Rank
		kind  error
	}{
		{"empty", nil, shared.ErrEmptyValue},
		{"duplicate sort order", []Rank{{ID: "a", Name: "A", SortOrder: 1}, {ID: "b", Name: "B", SortOrder: 1}}, shared.ErrInvalidInput},
		{"duplicate id", []Rank{{ID: "a", Name: "A", SortOrder: 1}, {ID: "a", Name: "A2", SortOrder: 2}}, shared.ErrAlreadyExists},
		{"missing name", []Rank{{ID: "a", SortOrder: 1}}, shared.ErrInvalidInput},
		{"zero sort order", []Rank{{ID: "a", Name: "A"}}, shared.ErrValueOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.ranks)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestCatalog_ByIDNotFound(t *testing.T) {
	_, err := StandardCatalog().ByID("purple")
	assert.True(t, shared.IsNotFound(err))
}
