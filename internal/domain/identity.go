package domain

import "strings"

// IdentityRecord represents one individual from the sanctions watchlist
type IdentityRecord struct {
	DataID     string   `json:"data_id"`
	FirstName  string   `json:"first_name,omitempty"`
	SecondName string   `json:"second_name,omitempty"`
	ThirdName  string   `json:"third_name,omitempty"`
	FourthName string   `json:"fourth_name,omitempty"`
	FullName   string   `json:"full_name"`
	AliasNames []string `json:"alias_names,omitempty"`

	// Descriptive attributes, carried for reporting only
	Designation   string   `json:"designation,omitempty"`
	Title         string   `json:"title,omitempty"`
	Nationality   string   `json:"nationality,omitempty"`
	ListedOn      string   `json:"listed_on,omitempty"`
	Comments      []string `json:"comments,omitempty"` // COMMENTS1..COMMENTS4, empty ones dropped
	DatesOfBirth  []string `json:"dates_of_birth,omitempty"`
	PlacesOfBirth []string `json:"places_of_birth,omitempty"`
	Addresses     []string `json:"addresses,omitempty"`
	Documents     []string `json:"documents,omitempty"`
}

// JoinNameParts space-joins the non-empty name parts, preserving order
func JoinNameParts(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// DeriveFullName sets FullName from the four name parts
func (r *IdentityRecord) DeriveFullName() {
	r.FullName = JoinNameParts(r.FirstName, r.SecondName, r.ThirdName, r.FourthName)
}

// NameParts returns the four ordered name-part fields
func (r *IdentityRecord) NameParts() [4]string {
	return [4]string{r.FirstName, r.SecondName, r.ThirdName, r.FourthName}
}
