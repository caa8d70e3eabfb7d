package model

// Incorporation is a new business registration published in the gazette
type Incorporation struct {
	ID          string `json:"id" bson:"id"`                     // Company name or numbered name
	CompanyType string `json:"company_type" bson:"company_type"` // One of the registry vocabulary labels
	Date        string `json:"date" bson:"date"`                 // Registration date as printed (e.g. "2006 AUG 03")
	Address     string `json:"address" bson:"address"`           // Registered address, free text
	Number      string `json:"number" bson:"number"`             // Corporate access number
}

// NameChange is a company name change published in the gazette
type NameChange struct {
	ID            string `json:"id" bson:"id"`
	CompanyType   string `json:"company_type" bson:"company_type"`
	Date          string `json:"date" bson:"date"` // Original registration date
	NewName       string `json:"new_name" bson:"new_name"`
	EffectiveDate string `json:"effective_date" bson:"effective_date"`
	Number        string `json:"number" bson:"number"`
}

// IncorporationHeader is the tabular column order for incorporations
var IncorporationHeader = []string{"id", "company_type", "date", "address", "number"}

// NameChangeHeader is the tabular column order for name changes
var NameChangeHeader = []string{"id", "company_type", "date", "new_name", "effective_date", "number"}

// Row returns the record as a table row in IncorporationHeader order
func (i Incorporation) Row() []string {
	return []string{i.ID, i.CompanyType, i.Date, i.Address, i.Number}
}

// Row returns the record as a table row in NameChangeHeader order
func (n NameChange) Row() []string {
	return []string{n.ID, n.CompanyType, n.Date, n.NewName, n.EffectiveDate, n.Number}
}
