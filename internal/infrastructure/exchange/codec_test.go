package exchange

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/internal/domain/exchange"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

func sampleDocument() *exchange.Document {
	at := time.Date(2025, 5, 2, 17, 0, 0, 0, time.UTC)
	return exchange.NewDocument("1.4.0", "tablet", []exchange.ProfileBundle{{
		Profile: exchange.ProfileData{
			Name: "Mina", Avatar: "ninja", ColorTheme: "red", BeltID: "8th_keup",
			LearningMode: "mastery", DailyStudyGoal: 20, CreatedAt: at.AddDate(0, -2, 0),
			StreakDays: 4, LastStudyDate: at.Truncate(24 * time.Hour), TotalStudySeconds: 5400,
			TotalFlashcardsSeen: 120, TotalTestsTaken: 3,
		},
		Progress: []exchange.ProgressData{{ContentID: "ap_chagi", CorrectCount: 6, IncorrectCount: 1, BestAccuracy: 0.857, Stage: "familiar", LastPracticedAt: at}},
		Sessions: []exchange.SessionData{{Type: "flashcards", ItemsStudied: 10, CorrectAnswers: 7, FocusAreas: []string{"kicks"}, StartedAt: at.Add(-15 * time.Minute), EndedAt: at, Accuracy: 0.7}},
		Gradings: []exchange.GradingData{{Date: at.AddDate(0, -1, 0), BeltTestedID: "9th_keup", BeltAchievedID: "8th_keup", Passed: true, Type: "regular"}},
	}}, at)
}

func TestCodec_SealThenOpen(t *testing.T) {
	c := NewCodec()
	doc := sampleDocument()

	data, err := c.Seal(doc)
	require.NoError(t, err)
	require.Len(t, doc.Checksum, 64)

	opened, err := c.Open(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Checksum, opened.Checksum)
	assert.Equal(t, "Mina", opened.Profiles[0].Profile.Name)
	assert.NoError(t, opened.Validate())
}

func TestCodec_EncodeDecode(t *testing.T) {
	c := NewCodec()
	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, sampleDocument()))

	doc, err := c.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, exchange.FormatVersion, doc.ExportVersion)
}

func TestCodec_ChecksumCoversProfilesOnly(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	b.DeviceName = "phone"
	b.ExportedAt = b.ExportedAt.Add(time.Hour)

	sa, err := Checksum(a.Profiles)
	require.NoError(t, err)
	sb, err := Checksum(b.Profiles)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)

	b.Profiles[0].Progress[0].CorrectCount++
	sb, err = Checksum(b.Profiles)
	require.NoError(t, err)
	assert.NotEqual(t, sa, sb)
}

func TestCodec_Rejects(t *testing.T) {
	c := NewCodec()
	sealed, err := c.Seal(sampleDocument())
	require.NoError(t, err)

	tampered := bytes.Replace(sealed, []byte(`"correctCount": 6`), []byte(`"correctCount": 60`), 1)
	require.NotEqual(t, sealed, tampered)

	var versioned map[string]any
	require.NoError(t, json.Unmarshal(sealed, &versioned))
	versioned["exportVersion"] = "2.0"
	wrongVersion, err := json.Marshal(versioned)
	require.NoError(t, err)

	delete(versioned, "checksum")
	versioned["exportVersion"] = "1.0"
	unsigned, err := json.Marshal(versioned)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"tampered payload", tampered, shared.ErrChecksumMismatch},
		{"unknown version", wrongVersion, shared.ErrUnsupportedExport},
		{"missing checksum", unsigned, shared.ErrChecksumMismatch},
		{"not json", []byte("{profiles"), shared.ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Open(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	lax := Codec{VerifyChecksum: false}
	_, err = lax.Open(tampered)
	assert.NoError(t, err)
}

func TestCodec_DecodeLimitsSize(t *testing.T) {
	big := strings.NewReader(strings.Repeat(" ", MaxDocumentSize+1))
	_, err := NewCodec().Decode(big)
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}
