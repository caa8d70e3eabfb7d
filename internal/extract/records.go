package extract

import (
	"strings"

	"github.com/ppiankov/gazetteer/internal/model"
)

// Builder assembles record lines into typed records
type Builder struct {
	legacyEffectiveDate bool
}

// NewBuilder creates a record builder. With legacyEffectiveDate set, name
// changes carry the registration date as their effective date, reproducing
// tables published by earlier releases.
func NewBuilder(legacyEffectiveDate bool) *Builder {
	return &Builder{legacyEffectiveDate: legacyEffectiveDate}
}

// Incorporation parses one line of the registrations section
func (b *Builder) Incorporation(line string) (model.Incorporation, error) {
	companyType, id, err := CompanyTypeAndID(line)
	if err != nil {
		return model.Incorporation{}, err
	}
	date, err := Date(line)
	if err != nil {
		return model.Incorporation{}, err
	}
	address, err := Address(line)
	if err != nil {
		return model.Incorporation{}, err
	}
	number, err := Number(line)
	if err != nil {
		return model.Incorporation{}, err
	}

	return model.Incorporation{
		ID:          id,
		CompanyType: companyType,
		Date:        date,
		Address:     address,
		Number:      number,
	}, nil
}

// NameChange parses one line of the name changes section
func (b *Builder) NameChange(line string) (model.NameChange, error) {
	companyType, id, err := CompanyTypeAndID(line)
	if err != nil {
		return model.NameChange{}, err
	}
	date, err := Date(line)
	if err != nil {
		return model.NameChange{}, err
	}
	newName, err := NewName(line)
	if err != nil {
		return model.NameChange{}, err
	}

	effective := date
	if !b.legacyEffectiveDate {
		effective, err = EffectiveDate(line)
		if err != nil {
			return model.NameChange{}, err
		}
	}

	number, err := Number(line)
	if err != nil {
		return model.NameChange{}, err
	}

	return model.NameChange{
		ID:            id,
		CompanyType:   companyType,
		Date:          date,
		NewName:       newName,
		EffectiveDate: effective,
		Number:        number,
	}, nil
}

// Failure is a record line that could not be parsed
type Failure struct {
	Section string `json:"section"`
	Line    string `json:"line"`
	Err     error  `json:"-"`
}

// Records is everything extracted from one document
type Records struct {
	Incorporations []model.Incorporation
	NameChanges    []model.NameChange
	Failures       []Failure
	// Unterminated names the sections whose end header never appeared
	Unterminated []string
}

// Parser turns a whole bulletin into records
type Parser struct {
	builder *Builder
}

// NewParser creates a parser around a record builder
func NewParser(builder *Builder) *Parser {
	if builder == nil {
		builder = NewBuilder(false)
	}
	return &Parser{builder: builder}
}

// Parse extracts both sections of a bulletin. Lines that fail to parse are
// reported in Failures and never abort the document.
func (p *Parser) Parse(text string) *Records {
	lines := strings.Split(text, "\n")
	records := &Records{
		Incorporations: []model.Incorporation{},
		NameChanges:    []model.NameChange{},
	}

	incLines, open := Incorporations.Scan(lines)
	if open {
		records.Unterminated = append(records.Unterminated, Incorporations.Name)
	}
	for _, line := range incLines {
		inc, err := p.builder.Incorporation(line)
		if err != nil {
			records.Failures = append(records.Failures, Failure{Section: Incorporations.Name, Line: line, Err: err})
			continue
		}
		records.Incorporations = append(records.Incorporations, inc)
	}

	ncLines, open := NameChanges.Scan(lines)
	if open {
		records.Unterminated = append(records.Unterminated, NameChanges.Name)
	}
	for _, line := range ncLines {
		nc, err := p.builder.NameChange(line)
		if err != nil {
			records.Failures = append(records.Failures, Failure{Section: NameChanges.Name, Line: line, Err: err})
			continue
		}
		records.NameChanges = append(records.NameChanges, nc)
	}

	return records
}
