package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gnomegl/wagroups/internal/types"
	"go.uber.org/multierr"
)

var groupHeader = []string{
	"Group Name", "Group ID", "Created Date", "Owner", "Description",
	"Total Participants", "Admin Count", "Invite Link",
	"Is Archived", "Is Muted", "Is Pinned", "Unread Count", "Participant Numbers",
}

var filteredHeader = []string{
	"Group Name", "Group ID", "Created Date", "Owner", "Description",
	"Total Participants", "Admin Count", "Invite Link", "Matched Keywords",
	"Is Archived", "Is Muted", "Is Pinned", "Unread Count", "Participant Numbers",
}

var participantHeader = []string{"Group Name", "Participant Number", "Is Admin", "Is Super Admin"}

var resultHeader = []string{"Phone Number", "Group Name", "Status", "Success"}

// Reporter writes the date-stamped report files of a run into Dir. Files of
// the same day are overwritten.
type Reporter struct {
	Dir string
	Now func() time.Time
	Out io.Writer
}

func NewReporter(dir string, out io.Writer) *Reporter {
	return &Reporter{Dir: dir, Now: time.Now, Out: out}
}

// Date is the UTC calendar date embedded in file names.
func (r *Reporter) Date() string {
	return r.Now().UTC().Format("2006-01-02")
}

func (r *Reporter) path(category, format string) string {
	return filepath.Join(r.Dir, FormatFilename(category, r.Date(), format))
}

// WriteGroups writes the admin group JSON, CSV and participants CSV.
func (r *Reporter) WriteGroups(details []types.GroupDetail) ([]string, error) {
	return r.writeSet(details, "admin_groups", groupHeader, groupRow, "Detailed groups information", "Groups CSV", "Detailed participants list")
}

// WriteFiltered writes the keyword-filtered JSON, CSV and participants CSV.
func (r *Reporter) WriteFiltered(details []types.GroupDetail) ([]string, error) {
	return r.writeSet(details, "admin_groups_filtered", filteredHeader, filteredRow, "Filtered groups JSON", "Filtered groups CSV", "Filtered participants list")
}

func (r *Reporter) writeSet(details []types.GroupDetail, category string, header []string, row func(types.GroupDetail) []string, jsonLabel, csvLabel, participantsLabel string) ([]string, error) {
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}
	if details == nil {
		details = []types.GroupDetail{}
	}

	jsonPath := r.path(category, "json")
	if err := WriteJSON(details, jsonPath); err != nil {
		return nil, err
	}
	r.printf("✓ %s saved to %s\n", jsonLabel, jsonPath)

	csvPath := r.path(category, "csv")
	rows := make([][]string, len(details))
	for i, d := range details {
		rows[i] = row(d)
	}
	if err := writeCSV(csvPath, header, rows); err != nil {
		return nil, err
	}
	r.printf("✓ %s saved to %s\n", csvLabel, csvPath)

	participantsPath := r.path(category+"_participants", "csv")
	if err := writeCSV(participantsPath, participantHeader, participantRows(details)); err != nil {
		return nil, err
	}
	r.printf("✓ %s saved to %s\n", participantsLabel, participantsPath)

	return []string{jsonPath, csvPath, participantsPath}, nil
}

// WriteResults writes the mutation results CSV.
func (r *Reporter) WriteResults(results []types.MutationResult) (string, error) {
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory: %w", err)
	}

	rows := make([][]string, len(results))
	for i, res := range results {
		rows[i] = []string{res.Phone, Quote(res.Group), Quote(res.Status), YesNo(res.Success)}
	}

	path := r.path("add_participants_results", "csv")
	if err := writeCSV(path, resultHeader, rows); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Reporter) printf(format string, args ...interface{}) {
	if r.Out != nil {
		fmt.Fprintf(r.Out, format, args...)
	}
}

func writeCSV(path string, header []string, rows [][]string) (err error) {
	w, err := NewCSVWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, w.Close())
	}()

	if err := w.WriteHeader(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.WriteRecord(row); err != nil {
			return err
		}
	}
	return nil
}

func groupRow(d types.GroupDetail) []string {
	return []string{
		Quote(d.Name),
		d.ID,
		d.CreatedAt,
		d.Owner,
		Quote(d.Description),
		strconv.Itoa(d.ParticipantsCount),
		strconv.Itoa(d.AdminCount),
		d.InviteLink,
		YesNo(d.IsArchived),
		YesNo(d.IsMuted),
		YesNo(d.IsPinned),
		strconv.Itoa(d.UnreadCount),
		Quote(strings.Join(d.Numbers(), "; ")),
	}
}

func filteredRow(d types.GroupDetail) []string {
	row := groupRow(d)
	out := make([]string, 0, len(row)+1)
	out = append(out, row[:8]...)
	out = append(out, Quote(strings.Join(d.MatchedKeywords, ", ")))
	return append(out, row[8:]...)
}

func participantRows(details []types.GroupDetail) [][]string {
	var rows [][]string
	for _, d := range details {
		for _, p := range d.Participants {
			rows = append(rows, []string{Quote(d.Name), p.Number, YesNo(p.IsAdmin), YesNo(p.IsSuperAdmin)})
		}
	}
	return rows
}
