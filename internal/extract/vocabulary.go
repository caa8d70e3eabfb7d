package extract

import (
	"slices"
	"strings"
)

// companyTypes is the registry's entity classification vocabulary in the
// order it was first catalogued.
var companyTypes = []string{
	"Named Alberta Corporation",
	"Numbered Alberta Corporation",
	"Other Prov/Territory Corps",
	"Certified General Accounting Professional Corporation",
	"Certified Management Accounting Professional Corporation",
	"Federal Corporation",
	"Alberta Society",
	"Chartered Accounting Professional Corporation",
	"Medical Professional Corporation",
	"Foreign Corporation",
	"Legal Professional Corporation",
	"Chiropractic Professional Corporation",
	"Alberta Cooperative",
	"Religious Society",
	"Liability Partnership",
	"Non-Profit Private Company",
	"Dental Professional Corporation",
	"Extra-Provincial Cooperative",
	"Non-Profit Public Company",
	"Recreation Private Company",
	"Optometry Professional Corporation",
	"Private Act Non-Profit Corporation",
	"Extra-Provincial Loan Corporation",
	"Recreation Public Company",
	"Rural Utilities",
	"Private Corporation",
	"Trust Corporation",
	"Foreign Cooperative",
	"Private Act Corporation",
	"Credit Union Amalgamated",
	"Alberta Lodge",
	"Public Corporation",
	"Chartered Professional Accountant Professional Corporation",
	"Credit Union",
}

// matchOrder is the priority in which labels are tried: longest first, ties
// keep catalogue order. A label that contains another label always wins.
var matchOrder = func() []string {
	order := slices.Clone(companyTypes)
	slices.SortStableFunc(order, func(a, b string) int {
		return len(b) - len(a)
	})
	return order
}()

// CompanyTypes returns the vocabulary in catalogue order
func CompanyTypes() []string {
	return slices.Clone(companyTypes)
}

// matchCompanyType returns the highest-priority label in line and its byte offset
func matchCompanyType(line string) (string, int, bool) {
	for _, label := range matchOrder {
		if idx := strings.Index(line, label); idx >= 0 {
			return label, idx, true
		}
	}
	return "", -1, false
}
