package extract

import (
	"strings"
)

// Delimiter tokens of a registrar record line
const (
	RegisteredAddressMarker = "Registered Address:"
	NewNameMarker           = "New Name:"
	EffectiveDateMarker     = "Effective Date:"
	NumberMarker            = "No:"
)

// dateTokens is the number of whitespace tokens in a printed date ("2006 AUG 03")
const dateTokens = 3

// CompanyTypeAndID returns the company type label found in line and the
// company identifier printed before it.
func CompanyTypeAndID(line string) (companyType string, id string, err error) {
	label, idx, ok := matchCompanyType(line)
	if !ok {
		return "", "", &FieldError{Field: "company_type", Line: line, Err: ErrUnknownCompanyType}
	}

	id = strings.TrimSpace(line[:idx])
	if id == "" {
		return "", "", malformed("id", line, "empty identifier before "+label)
	}

	return label, id, nil
}

// Date returns the registration date: the three tokens printed immediately
// before "Registered Address:" or, failing that, before "New Name:".
func Date(line string) (string, error) {
	marker := RegisteredAddressMarker
	before, _, ok := strings.Cut(line, marker)
	if !ok {
		marker = NewNameMarker
		before, _, ok = strings.Cut(line, marker)
	}
	if !ok {
		return "", missing("date", line, RegisteredAddressMarker+"|"+NewNameMarker)
	}

	tokens := strings.Fields(before)
	if len(tokens) < dateTokens {
		return "", malformed("date", line, "fewer than 3 tokens before "+marker)
	}

	date := strings.Join(tokens[len(tokens)-dateTokens:], " ")
	if marker == NewNameMarker {
		date = trimArtifact(date)
	}
	return date, nil
}

// Address returns the registered address printed between
// "Registered Address:" and "No:".
func Address(line string) (string, error) {
	_, rest, ok := strings.Cut(line, RegisteredAddressMarker)
	if !ok {
		return "", missing("address", line, RegisteredAddressMarker)
	}

	address, _, ok := strings.Cut(rest, NumberMarker)
	if !ok {
		return "", missing("address", line, NumberMarker)
	}

	address = trimArtifact(strings.TrimSpace(address))
	if address == "" {
		return "", malformed("address", line, "empty address")
	}
	return address, nil
}

// Number returns the corporate access number, the last token of the line
func Number(line string) (string, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return "", malformed("number", line, "empty line")
	}

	last := tokens[len(tokens)-1]
	if last == NumberMarker {
		return "", malformed("number", line, "no value after "+NumberMarker)
	}

	number := trimArtifact(last)
	if number == "" {
		return "", malformed("number", line, "empty number")
	}
	return number, nil
}

// NewName returns the name printed between "New Name:" and "Effective Date:"
func NewName(line string) (string, error) {
	_, rest, ok := strings.Cut(line, NewNameMarker)
	if !ok {
		return "", missing("new_name", line, NewNameMarker)
	}

	name, _, ok := strings.Cut(rest, EffectiveDateMarker)
	if !ok {
		return "", missing("new_name", line, EffectiveDateMarker)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", malformed("new_name", line, "empty new name")
	}
	return name, nil
}

// EffectiveDate returns the three date tokens following "Effective Date:"
func EffectiveDate(line string) (string, error) {
	_, rest, ok := strings.Cut(line, EffectiveDateMarker)
	if !ok {
		return "", missing("effective_date", line, EffectiveDateMarker)
	}
	rest, _, _ = strings.Cut(rest, NumberMarker)

	tokens := strings.Fields(rest)
	if len(tokens) < dateTokens {
		return "", malformed("effective_date", line, "fewer than 3 tokens after "+EffectiveDateMarker)
	}

	return trimArtifact(strings.Join(tokens[:dateTokens], " ")), nil
}

// trimArtifact drops the single punctuation mark the gazette prints at the
// end of a field ("Calgary Alberta T2P 1J9." -> "Calgary Alberta T2P 1J9").
func trimArtifact(s string) string {
	if n := len(s); n > 0 {
		switch s[n-1] {
		case '.', ',', ';':
			s = s[:n-1]
		}
	}
	return strings.TrimSpace(s)
}
