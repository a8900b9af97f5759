package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gnomegl/wagroups/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Say "Hi"`, `"Say ""Hi"""`},
		{"plain", `"plain"`},
		{"line one\nline two", `"line one line two"`},
		{"crlf\r\nend", `"crlf end"`},
		{"", `""`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Quote(tt.in), tt.in)
	}
}

func TestFormatFilename(t *testing.T) {
	assert.Equal(t, "whatsapp_admin_groups_2026-10-17.json", FormatFilename("admin_groups", "2026-10-17", "json"))
}

func fixedReporter(t *testing.T) *Reporter {
	t.Helper()
	r := NewReporter(t.TempDir(), nil)
	r.Now = func() time.Time {
		return time.Date(2026, 10, 17, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	}
	return r
}

func sampleDetails() []types.GroupDetail {
	return []types.GroupDetail{
		{
			ID:                "120363@g.us",
			Name:              `Say "Hi"`,
			CreatedAt:         "2024-01-02 03:04:05",
			Owner:             "911111111111@c.us",
			Description:       "first line\nsecond line",
			ParticipantsCount: 2,
			AdminCount:        1,
			InviteLink:        "https://chat.whatsapp.com/ABC",
			Participants: []types.ParticipantDetail{
				{ID: "911111111111@c.us", Number: "911111111111", IsAdmin: true, IsSuperAdmin: true},
				{ID: "922222222222@c.us", Number: "922222222222"},
			},
			IsMuted:         true,
			UnreadCount:     4,
			MatchedKeywords: []string{"ai", "workshop"},
		},
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestWriteGroups(t *testing.T) {
	r := fixedReporter(t)

	files, err := r.WriteGroups(sampleDetails())
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, filepath.Join(r.Dir, "whatsapp_admin_groups_2026-10-17.json"), files[0])
	assert.Equal(t, filepath.Join(r.Dir, "whatsapp_admin_groups_2026-10-17.csv"), files[1])
	assert.Equal(t, filepath.Join(r.Dir, "whatsapp_admin_groups_participants_2026-10-17.csv"), files[2])

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var decoded []types.GroupDetail
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "120363@g.us", decoded[0].ID)
	assert.Contains(t, string(data), "\n  {")

	lines := readLines(t, files[1])
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(groupHeader, ","), lines[0])
	assert.Equal(t,
		`"Say ""Hi""",120363@g.us,2024-01-02 03:04:05,911111111111@c.us,"first line second line",2,1,https://chat.whatsapp.com/ABC,No,Yes,No,4,"911111111111; 922222222222"`,
		lines[1])

	lines = readLines(t, files[2])
	assert.Equal(t, []string{
		"Group Name,Participant Number,Is Admin,Is Super Admin",
		`"Say ""Hi""",911111111111,Yes,Yes`,
		`"Say ""Hi""",922222222222,No,No`,
	}, lines)
}

func TestWriteFilteredAddsMatchedKeywords(t *testing.T) {
	r := fixedReporter(t)

	files, err := r.WriteFiltered(sampleDetails())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Dir, "whatsapp_admin_groups_filtered_participants_2026-10-17.csv"), files[2])

	lines := readLines(t, files[1])
	assert.Equal(t, strings.Join(filteredHeader, ","), lines[0])
	assert.Contains(t, lines[1], `https://chat.whatsapp.com/ABC,"ai, workshop",No,Yes,No,4,`)
}

func TestWriteGroupsEmptyWritesEmptyArray(t *testing.T) {
	r := fixedReporter(t)

	files, err := r.WriteGroups(nil)
	require.NoError(t, err)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
	assert.Len(t, readLines(t, files[1]), 1)
}

func TestWriteResults(t *testing.T) {
	r := fixedReporter(t)

	path, err := r.WriteResults([]types.MutationResult{
		{Phone: "911111111111", Group: `Say "Hi"`, Status: "Promoted to admin", Success: true},
		{Phone: "911111111111", Group: "Other", Status: `Promote failed: "forbidden"`, Success: false},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Dir, "whatsapp_add_participants_results_2026-10-17.csv"), path)

	assert.Equal(t, []string{
		"Phone Number,Group Name,Status,Success",
		`911111111111,"Say ""Hi""","Promoted to admin",Yes`,
		`911111111111,"Other","Promote failed: ""forbidden""",No`,
	}, readLines(t, path))
}

func TestReporterOverwritesSameDay(t *testing.T) {
	r := fixedReporter(t)

	_, err := r.WriteGroups(sampleDetails())
	require.NoError(t, err)
	files, err := r.WriteGroups(nil)
	require.NoError(t, err)

	assert.Len(t, readLines(t, files[1]), 1)
}

func TestWriteJSONReplacesFileAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "groups.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	require.NoError(t, WriteJSON(map[string]int{"groups": 2}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"groups\": 2\n}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteJSONErrors(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "absent", "groups.json")
	err := WriteJSON([]string{}, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing)

	path := filepath.Join(dir, "bad.json")
	err = WriteJSON(func() {}, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error encoding JSON for "+path)
	assert.NoFileExists(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
