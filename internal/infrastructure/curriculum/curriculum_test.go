package curriculum

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/content"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

func rank(t *testing.T, id string) belt.Rank {
	t.Helper()
	r, err := belt.StandardCatalog().ByID(id)
	require.NoError(t, err)
	return r
}

func TestDecodeBelts(t *testing.T) {
	cat, err := DecodeBelts(strings.NewReader(`
belts:
  - {id: white, name: White, sort_order: 2, beginner_tier: true}
  - {id: black, name: Black, sort_order: 1, dan: true}
`))
	require.NoError(t, err)
	assert.Equal(t, "white", cat.MostJunior().ID)
	assert.Equal(t, "White", cat.MostJunior().ShortName)
	assert.True(t, cat.MostAdvanced().IsDan)

	_, err = DecodeBelts(strings.NewReader("belts:\n  - {id: x, name: X, sort_order: 1, colour: red}\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = DecodeBelts(strings.NewReader("belts:\n  - {id: a, name: A, sort_order: 1}\n  - {id: b, name: B, sort_order: 1}\n"))
	assert.Error(t, err, "sort orders must be unique")
}

func TestLoadBelts_MissingFileUsesStandard(t *testing.T) {
	cat, err := LoadBelts(fstest.MapFS{}, BeltsFile)
	require.NoError(t, err)
	assert.Equal(t, len(belt.Standard()), cat.Len())
}

func TestDecodeJSON_Layouts(t *testing.T) {
	belts := belt.StandardCatalog()

	items, err := DecodeJSON(strings.NewReader(`{
		"category": "basics", "belt_level": "10th Keup",
		"terminology": [
			{"english_term": "Front Kick", "romanized_pronunciation": "Ap Chagi", "korean_hangul": "앞차기", "category": "kicks"},
			{"id": "terminology/attention", "english_term": "Attention", "belt_level": "9th-keup"}
		]}`), belts, "t.json")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, shared.ContentID("terminology/front-kick"), items[0].ID)
	assert.Equal(t, "kicks", items[0].Category)
	assert.Equal(t, "10th_keup", items[0].RequiredRank.ID)
	assert.Equal(t, "basics", items[1].Category)
	assert.Equal(t, "9th_keup", items[1].RequiredRank.ID)
	assert.Equal(t, "t.json", items[1].Source)

	bare, err := DecodeJSON(strings.NewReader(`[{"english_term": "Bow", "belt_level": "10th_keup"}]`), belts, "b.json")
	require.NoError(t, err)
	require.Len(t, bare, 1)
	assert.Equal(t, content.KindTerminology, bare[0].Kind)

	patterns, err := DecodeJSON(strings.NewReader(`{"patterns": [{"name": "Chon-Ji", "moves": 19, "belt_level": "9th Keup"}]}`), belts, "p.json")
	require.NoError(t, err)
	assert.Equal(t, shared.ContentID("pattern/chon-ji"), patterns[0].ID)
	assert.Equal(t, 19, patterns[0].Moves)
	assert.Equal(t, "patterns", patterns[0].Category)

	_, err = DecodeJSON(strings.NewReader(`[{"english_term": "Bow", "belt_level": "black tag"}]`), belts, "x.json")
	assert.True(t, shared.IsNotFound(err), "unknown belts are not guessed")
}

func TestDecodeCSV_SkipsBadRows(t *testing.T) {
	csvData := "\ufeffKind,Term,Belt,Category,Moves\n" +
		"terminology,Ready,10th Keup,basics,\n" +
		",,,,\n" +
		"pattern,Do-San,7th Keup,patterns,24\n" +
		"kata,Heian Shodan,10th Keup,,\n" +
		"pattern,Won-Hyo,6th Keup,patterns,many\n"

	res, err := DecodeCSV(strings.NewReader(csvData), belt.StandardCatalog(), DefaultSheetConfig(), "c.csv")
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, shared.ContentID("terminology/ready"), res.Items[0].ID)
	assert.Equal(t, 24, res.Items[1].Moves)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 2)
	assert.True(t, strings.HasPrefix(res.Errors[0], "Row 5:"))

	_, err = DecodeCSV(strings.NewReader("Term,Belt\nReady,10th Keup\n"), belt.StandardCatalog(), DefaultSheetConfig(), "c.csv")
	assert.ErrorContains(t, err, `missing column "kind"`)
}

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestDecodeXLSX(t *testing.T) {
	data := workbook(t, [][]any{
		{"ID", "Kind", "Category", "Term", "Hangul", "Belt"},
		{"step-sparring/three-step-9", "step sparring", "three_step", "Three Step Sparring 9", "", "6th Keup"},
		{"", "terminology", "blocks", "Outer Forearm Block", "바깥팔목막기", "9th Keup"},
	})
	res, err := DecodeXLSX(bytes.NewReader(data), belt.StandardCatalog(), DefaultSheetConfig(), "w.xlsx")
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, content.KindStepSparring, res.Items[0].Kind)
	assert.Equal(t, shared.ContentID("terminology/outer-forearm-block"), res.Items[1].ID)
	assert.Equal(t, "바깥팔목막기", res.Items[1].Hangul)
}

func TestLibrary_DefaultsAreCumulative(t *testing.T) {
	lib := NewLibrary(Defaults(), nil)
	ctx := context.Background()

	_, err := lib.Snapshot(ctx)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)

	res, err := lib.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, res.RowErrors)

	cat, err := lib.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Items, cat.Len())

	white := content.Eligible(rank(t, "10th_keup"), cat.Items())
	yellow := content.Eligible(rank(t, "8th_keup"), cat.Items())
	assert.NotEmpty(t, white)
	assert.Greater(t, len(yellow), len(white))
	for _, it := range white {
		assert.Equal(t, "10th_keup", it.RequiredRank.ID)
	}

	_, err = cat.Get("pattern/chon-ji")
	assert.NoError(t, err)

	again, err := lib.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, res.Version, again.Version)
}

func TestLibrary_FailedReloadKeepsSnapshot(t *testing.T) {
	fsys := fstest.MapFS{
		"terms.json": {Data: []byte(`[{"english_term": "Bow", "belt_level": "10th Keup"}]`)},
	}
	lib := NewLibrary(fsys, nil)
	ctx := context.Background()
	first, err := lib.Reload(ctx)
	require.NoError(t, err)

	fsys["broken.json"] = &fstest.MapFile{Data: []byte(`{"patterns": [`)}
	_, err = lib.Reload(ctx)
	assert.Error(t, err)

	cat, err := lib.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Version, cat.Version())

	delete(fsys, "broken.json")
	fsys["more.csv"] = &fstest.MapFile{Data: []byte("kind,term,belt\npattern,Chon-Ji,9th Keup\n")}
	next, err := lib.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, next.Changed)
	assert.Equal(t, 2, next.Items)
}
