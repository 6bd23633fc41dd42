package app_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk_mapping/internal/app"
	"kiosk_mapping/internal/domain"
)

const exportHeader = "timestamp,reporter,category,latitude,longitude,place_name,kiosk_max_height,foreign_language_support\n"

func TestEncodeCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, app.EncodeCSV(&buf, nil))
	assert.Equal(t, exportHeader, buf.String())

	back, err := app.DecodeCSV(&buf)
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestEncodeCSV_QuotesDelimiters(t *testing.T) {
	records := []domain.Record{{
		Timestamp:    "2024-11-02 10:11:12",
		Reporter:     "10000 Hong, Gildong",
		Category:     "retail",
		Latitude:     pf(37.4973),
		Longitude:    pf(126.9092),
		PlaceName:    `The "Big" Mart`,
		HeightCM:     pf(152.5),
		Languages:    "English, Japanese",
		LanguagesSet: true,
	}}
	var buf bytes.Buffer
	require.NoError(t, app.EncodeCSV(&buf, records))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `2024-11-02 10:11:12,"10000 Hong, Gildong",retail,37.4973,126.9092,"The ""Big"" Mart",152.5,"English, Japanese"`, lines[1])
}

func TestExport_RoundTrip(t *testing.T) {
	rows := []domain.RawRow{
		{
			"timestamp": "2024-11-02 10:11:12", "category": "공공기관", "latitude": 37.1234567,
			"longitude": 126.7654321, "Place Name": "City Hall\nAnnex", "Kiosk Max Height": 171,
			"Foreign Language Support": "Spanish, English", "name": "20001 Kim", "Floor": "2",
		},
		{
			"timestamp": "2024-11-03 09:00:00", "category": "retail", "latitude": "n/a",
			"longitude": "", "Place Name": "Mart, East Gate", "Kiosk Max Height": "N/A",
			"name": "20002 Lee",
		},
		{
			"timestamp": "2024-11-04 18:30:00", "category": "food_service", "latitude": 0.1,
			"longitude": -0.3, "Place Name": "  padded  ", "Kiosk Max Height": 0,
			"Foreign Language Support": "", "name": `quote "me"`,
		},
	}
	records := app.Normalize(rows)

	var buf bytes.Buffer
	require.NoError(t, app.EncodeCSV(&buf, records))
	back, err := app.DecodeCSV(&buf)
	require.NoError(t, err)

	assert.Equal(t, records, back)
}

func TestDecodeCSV_AcceptsBOMAndAliasedHeaders(t *testing.T) {
	doc := "\xEF\xBB\xBFtimestamp,name,category,latitude,longitude,Place Name,Kiosk Max Height,Foreign Language Support\n" +
		"2024-11-02 10:11:12,Park,other,37.5,126.9,Library,133,none\n"

	got, err := app.DecodeCSV(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Park", got[0].Reporter)
	assert.Equal(t, "Library", got[0].PlaceName)
	require.NotNil(t, got[0].HeightCM)
	assert.Equal(t, 133.0, *got[0].HeightCM)
	assert.Equal(t, domain.LanguageNone, got[0].Languages)
}

func TestDecodeCSV_EmptyDocument(t *testing.T) {
	got, err := app.DecodeCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeCSV_Malformed(t *testing.T) {
	_, err := app.DecodeCSV(strings.NewReader(exportHeader + "a,\"unterminated\n"))
	assert.Error(t, err)
}
