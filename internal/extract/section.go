package extract

import "strings"

// Section header lines of a registrar bulletin, in document order
const (
	RegistrationsHeader = "Corporate Registrations"
	NameChangesHeader   = "Corporate Name Changes"
	DissolutionHeader   = "Corporations Liable for Dissolution"
)

const (
	// sectionHeaderLines is the boilerplate printed under each section header,
	// counting the header line itself.
	sectionHeaderLines = 4
	// minRecordLength is the shortest trimmed line kept; shorter lines are
	// page-break debris such as "." or stray whitespace.
	minRecordLength = 6
)

// Section names a block of records delimited by two header lines
type Section struct {
	Name  string
	Start string
	End   string
}

var (
	// Incorporations holds new business registrations
	Incorporations = Section{Name: "incorporations", Start: RegistrationsHeader, End: NameChangesHeader}
	// NameChanges holds company name changes
	NameChanges = Section{Name: "namechanges", Start: NameChangesHeader, End: DissolutionHeader}
)

// Scan returns the section's record lines from a document, and whether the
// section was opened and never closed, in which case its last run was
// discarded.
func (s Section) Scan(lines []string) ([]string, bool) {
	return ScanSection(lines, s.Start, s.End)
}

// ExtractSection returns the right-trimmed lines from a line starting with
// start up to the next line starting with end. The header line and the three
// lines after it are dropped, as are lines shorter than six characters.
// A run that is never closed by end is discarded, so a missing or misordered
// marker yields an empty result.
func ExtractSection(lines []string, start, end string) []string {
	out, _ := ScanSection(lines, start, end)
	return out
}

// ScanSection is ExtractSection that also reports whether a run opened by
// start was still open at the end of the document.
func ScanSection(lines []string, start, end string) ([]string, bool) {
	var (
		collected []string
		run       []string
		inside    bool
	)

	for _, line := range lines {
		if strings.HasPrefix(line, start) {
			inside = true
		} else if strings.HasPrefix(line, end) {
			if inside {
				collected = append(collected, run...)
			}
			inside = false
			run = run[:0]
		}
		if inside {
			run = append(run, strings.TrimRight(line, " \t\r\n\f\v"))
		}
	}

	if len(collected) <= sectionHeaderLines {
		return []string{}, inside
	}
	collected = collected[sectionHeaderLines:]

	out := make([]string, 0, len(collected))
	for _, line := range collected {
		if len(strings.TrimSpace(line)) >= minRecordLength {
			out = append(out, line)
		}
	}
	return out, inside
}
