package attendees

import (
	"encoding/csv"
	"io"
	"strconv"

	"ms-engagement/internal/models"
)

const ExportFilename = "attendees.csv"

var exportHeader = []string{"Name", "Email", "Points", "Checked In", "Value"}

// WriteCSV writes one row per attendee in the order given.
func WriteCSV(w io.Writer, attendees []models.Attendee) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, a := range attendees {
		checkedIn := "No"
		if a.CheckedIn {
			checkedIn = "Yes"
		}
		row := []string{a.Name, a.Email, strconv.Itoa(a.Points), checkedIn, strconv.Itoa(a.Value)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
