package lead

import "strings"

// Canonical field names recognized in config field maps and used as the
// default export column order.
const (
	FieldCompanyName = "company_name"
	FieldAddress     = "address"
	FieldEmail       = "email"
	FieldWebsite     = "website"
	FieldPhone       = "phone"
	FieldCountry     = "country"
	FieldIndustry    = "field"
)

// DefaultColumns is the canonical export column order.
var DefaultColumns = []string{
	FieldCompanyName,
	FieldAddress,
	FieldEmail,
	FieldWebsite,
	FieldPhone,
	FieldCountry,
	FieldIndustry,
}

// Lead is one extracted directory entry. Empty string means the field was
// not present on the page.
type Lead struct {
	CompanyName string
	Address     string
	Email       string
	Website     string
	Phone       string
	Country     string
	Field       string // industry/sector, optional in most directories
	SourceURL   string // listing page the entry was found on
}

// Get returns the value for a canonical field name.
func (l *Lead) Get(name string) string {
	switch name {
	case FieldCompanyName:
		return l.CompanyName
	case FieldAddress:
		return l.Address
	case FieldEmail:
		return l.Email
	case FieldWebsite:
		return l.Website
	case FieldPhone:
		return l.Phone
	case FieldCountry:
		return l.Country
	case FieldIndustry:
		return l.Field
	case "source_url":
		return l.SourceURL
	}
	return ""
}

// Set assigns the value for a canonical field name. Unknown names are
// ignored; config validation rejects them before a run starts.
func (l *Lead) Set(name, value string) {
	switch name {
	case FieldCompanyName:
		l.CompanyName = value
	case FieldAddress:
		l.Address = value
	case FieldEmail:
		l.Email = value
	case FieldWebsite:
		l.Website = value
	case FieldPhone:
		l.Phone = value
	case FieldCountry:
		l.Country = value
	case FieldIndustry:
		l.Field = value
	}
}

// KnownField reports whether name is a canonical field name.
func KnownField(name string) bool {
	for _, f := range DefaultColumns {
		if f == name {
			return true
		}
	}
	return false
}

// Result is the outcome of extracting one item: the lead plus the names of
// configured fields that yielded nothing. A result with missing fields is
// still exported unless the config says otherwise; fully unreadable items
// are reported as an error by the extractor instead.
type Result struct {
	Lead    Lead
	Missing []string
}

// Partial reports whether some configured fields were missing.
func (r *Result) Partial() bool {
	return len(r.Missing) > 0
}

// UsabilityPolicy decides which extracted leads are worth exporting.
type UsabilityPolicy string

const (
	// UsabilityLenient accepts any lead with at least one non-empty field.
	UsabilityLenient UsabilityPolicy = "lenient"
	// UsabilityStrict requires a non-empty company name.
	UsabilityStrict UsabilityPolicy = "strict"
)

// Usable applies the policy to a lead.
func (p UsabilityPolicy) Usable(l *Lead) bool {
	switch p {
	case UsabilityStrict:
		return strings.TrimSpace(l.CompanyName) != ""
	default:
		for _, f := range DefaultColumns {
			if strings.TrimSpace(l.Get(f)) != "" {
				return true
			}
		}
		return false
	}
}

// Normalize collapses internal whitespace and trims the ends, so values
// extracted from rendered markup compare and export cleanly.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IdentityKey derives the dedup key for a lead: case- and whitespace-folded
// company name and address joined by a unit separator. Used only by the
// dedup ledger, never persisted to output.
func IdentityKey(l *Lead) string {
	name := strings.ToLower(Normalize(l.CompanyName))
	addr := strings.ToLower(Normalize(l.Address))
	return name + "\x1f" + addr
}
