package domain

// Property is the slice of the property record this service reads. Property
// CRUD lives elsewhere.
type Property struct {
	ID          string
	OwnerID     string
	Name        string
	AddressLine string
	Suburb      string
	Region      string
}

// Profile holds the public display name of an account.
type Profile struct {
	ID          string
	DisplayName string
}

// PropertyPreview is what a prospective tenant sees before accepting. It must
// never carry the token or its fingerprint.
type PropertyPreview struct {
	PropertyID     string
	Name           string
	AddressSummary string
	IssuerName     string
}

// AddressSummary omits the street line so an unauthenticated preview only
// discloses the area.
func (p Property) AddressSummary() string {
	switch {
	case p.Suburb != "" && p.Region != "":
		return p.Suburb + ", " + p.Region
	case p.Suburb != "":
		return p.Suburb
	default:
		return p.Region
	}
}
