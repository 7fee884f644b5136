package roster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse/integrity-engine/integrity"
	"github.com/pulse/integrity-engine/roster"
)

// =============================================================================
// LENIENT PARSING
// =============================================================================

func TestParse_WellFormed(t *testing.T) {
	data := []byte("Nama,NIP,Jabatan,Leadership,Teamwork\nJohn,198001,Manager,85,90\nJane,198002,Analyst,70,75\n")

	result, err := roster.Parse(data)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "utf-8", result.Encoding)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "John", result.Rows[0]["Nama"])
}

func TestParse_ShortRow_PaddedWithWarning(t *testing.T) {
	// GIVEN: a row missing trailing columns
	// WHEN: parsing
	// THEN: the row is padded, kept, and the padding is warned about

	data := []byte("Nama,Leadership,Teamwork\nJohn,85\n")

	result, err := roster.Parse(data)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, 2, result.Warnings[0].Row)
	assert.Contains(t, result.Warnings[0].Message, "padded")
}

func TestParse_LongRow_TruncatedWithWarning(t *testing.T) {
	data := []byte("Nama,Leadership\nJohn,85,extra,junk\n")

	result, err := roster.Parse(data)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "dropped")
}

func TestParse_EmptyFile_Error(t *testing.T) {
	_, err := roster.Parse([]byte(""))
	assert.Error(t, err)
}

// =============================================================================
// RECORD CONTRACT
// =============================================================================

func TestRecords_MetadataAndCompetencyColumns(t *testing.T) {
	// GIVEN: bilingual metadata headers and two competency columns
	// WHEN: converting rows to pipeline records
	// THEN: metadata lands on record fields, the rest become performance
	//       entries named after their headers

	data := []byte("Nama,NIP,Golongan,Jabatan,Leadership,Kualitas Kinerja\nJohn,198001,III/a,Manager,85,90\n")
	result, err := roster.Parse(data)
	require.NoError(t, err)

	records := result.Records()
	require.Len(t, records, 1)

	rec := records[0].(map[string]any)
	assert.Equal(t, "John", rec["name"])
	assert.Equal(t, "198001", rec["nip"])
	assert.Equal(t, "III/a", rec["gol"])
	assert.Equal(t, "Manager", rec["position"])

	perf := rec["performance"].([]any)
	require.Len(t, perf, 2)
	first := perf[0].(map[string]any)
	assert.Equal(t, "Leadership", first["name"])
	assert.Equal(t, "85", first["score"])
}

func TestRecords_EmptyScoreCells_Omitted(t *testing.T) {
	// An empty cell is an absent score, not a zero.
	data := []byte("Nama,Leadership,Teamwork\nJohn,,90\n")
	result, err := roster.Parse(data)
	require.NoError(t, err)

	rec := result.Records()[0].(map[string]any)
	perf := rec["performance"].([]any)
	require.Len(t, perf, 1)
	assert.Equal(t, "Teamwork", perf[0].(map[string]any)["name"])
}

func TestRecords_FeedThePipeline(t *testing.T) {
	// The roster output contract must validate cleanly end to end.
	data := []byte("Nama,NIP,Leadership\nJohn,198001,85\nJane,198002,140\n")
	result, err := roster.Parse(data)
	require.NoError(t, err)

	outcome := integrity.NewPipeline().RunRecords(result.Records(), integrity.DefaultPolicy())

	assert.True(t, outcome.IsValid)
	require.Len(t, outcome.Data, 2)
	assert.Equal(t, "85", outcome.Data[0].Performance[0].Score.String())
	assert.Equal(t, "100", outcome.Data[1].Performance[0].Score.String(), "over-range roster score clamped")
}

// =============================================================================
// ENCODING DETECTION
// =============================================================================

func TestDetectAndDecode_UTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Nama\nJohn")...)
	decoded, enc, err := roster.DetectAndDecode(data)
	require.NoError(t, err)
	assert.Equal(t, "utf-8-bom", enc)
	assert.Equal(t, "Nama\nJohn", string(decoded))
}

func TestDetectAndDecode_UTF16LE(t *testing.T) {
	// "Hi" in UTF-16 LE with BOM
	data := []byte{0xFF, 0xFE, 'H', 0x00, 'i', 0x00}
	decoded, enc, err := roster.DetectAndDecode(data)
	require.NoError(t, err)
	assert.Equal(t, "utf-16le", enc)
	assert.Equal(t, "Hi", string(decoded))
}

func TestDetectAndDecode_Windows1252Fallback(t *testing.T) {
	// 0xE9 is é in Windows-1252 and invalid as standalone UTF-8
	data := []byte{'R', 0xE9, 'n', 0xE9}
	decoded, enc, err := roster.DetectAndDecode(data)
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", enc)
	assert.Equal(t, "Réné", string(decoded))
}
