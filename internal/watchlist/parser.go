package watchlist

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/banking/sanctions-screening/internal/domain"
)

// xmlIndividual mirrors an INDIVIDUAL element of the consolidated list
type xmlIndividual struct {
	DataID      string       `xml:"DATAID"`
	FirstName   string       `xml:"FIRST_NAME"`
	SecondName  string       `xml:"SECOND_NAME"`
	ThirdName   string       `xml:"THIRD_NAME"`
	FourthName  string       `xml:"FOURTH_NAME"`
	Title       []string     `xml:"TITLE>VALUE"`
	Designation []string     `xml:"DESIGNATION>VALUE"`
	Nationality []string     `xml:"NATIONALITY>VALUE"`
	ListedOn    string       `xml:"LISTED_ON"`
	Comments1   string       `xml:"COMMENTS1"`
	Comments2   string       `xml:"COMMENTS2"`
	Comments3   string       `xml:"COMMENTS3"`
	Comments4   string       `xml:"COMMENTS4"`
	Aliases     []xmlAlias   `xml:"INDIVIDUAL_ALIAS"`
	Births      []xmlBirth   `xml:"INDIVIDUAL_DATE_OF_BIRTH"`
	Places      []xmlPlace   `xml:"INDIVIDUAL_PLACE_OF_BIRTH"`
	Addresses   []xmlAddress `xml:"INDIVIDUAL_ADDRESS"`
	Documents   []xmlDoc     `xml:"INDIVIDUAL_DOCUMENT"`
}

type xmlAlias struct {
	Name string `xml:"ALIAS_NAME"`
}

type xmlBirth struct {
	Type     string `xml:"TYPE_OF_DATE"`
	Date     string `xml:"DATE"`
	Year     string `xml:"YEAR"`
	FromYear string `xml:"FROM_YEAR"`
	ToYear   string `xml:"TO_YEAR"`
}

type xmlPlace struct {
	City    string `xml:"CITY"`
	State   string `xml:"STATE_PROVINCE"`
	Country string `xml:"COUNTRY"`
}

type xmlAddress struct {
	Street  string `xml:"STREET"`
	City    string `xml:"CITY"`
	State   string `xml:"STATE_PROVINCE"`
	Country string `xml:"COUNTRY"`
	Note    string `xml:"NOTE"`
}

type xmlDoc struct {
	Type           string `xml:"TYPE_OF_DOCUMENT"`
	Number         string `xml:"NUMBER"`
	IssuingCountry string `xml:"ISSUING_COUNTRY"`
	DateOfIssue    string `xml:"DATE_OF_ISSUE"`
	Note           string `xml:"NOTE"`
}

// Parse streams a consolidated list document and returns every individual with its
// full detail, plus entry counts for the metadata. Metadata fields describing the
// download itself are left for the caller.
func Parse(r io.Reader) (*domain.Watchlist, error) {
	dec := xml.NewDecoder(r)
	wl := &domain.Watchlist{Individuals: make([]domain.IdentityRecord, 0)}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode watchlist: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "CONSOLIDATED_LIST":
			for _, attr := range start.Attr {
				if attr.Name.Local == "dateGenerated" {
					wl.Metadata.ListDateOfIssue = attr.Value
				}
			}
		case "DATE_OF_ISSUE":
			var v string
			if err := dec.DecodeElement(&v, &start); err != nil {
				return nil, fmt.Errorf("decode DATE_OF_ISSUE: %w", err)
			}
			if wl.Metadata.ListDateOfIssue == "" {
				wl.Metadata.ListDateOfIssue = strings.TrimSpace(v)
			}
		case "INDIVIDUAL":
			var x xmlIndividual
			if err := dec.DecodeElement(&x, &start); err != nil {
				return nil, fmt.Errorf("decode INDIVIDUAL: %w", err)
			}
			wl.Individuals = append(wl.Individuals, x.toRecord())
		case "ENTITY":
			wl.Metadata.EntityEntries++
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("skip ENTITY: %w", err)
			}
		}
	}

	wl.Metadata.IndividualEntries = len(wl.Individuals)
	wl.Metadata.TotalEntries = wl.Metadata.IndividualEntries + wl.Metadata.EntityEntries
	return wl, nil
}

func (x *xmlIndividual) toRecord() domain.IdentityRecord {
	r := domain.IdentityRecord{
		DataID:      strings.TrimSpace(x.DataID),
		FirstName:   strings.TrimSpace(x.FirstName),
		SecondName:  strings.TrimSpace(x.SecondName),
		ThirdName:   strings.TrimSpace(x.ThirdName),
		FourthName:  strings.TrimSpace(x.FourthName),
		Title:       joinValues(x.Title),
		Designation: joinValues(x.Designation),
		Nationality: joinValues(x.Nationality),
		ListedOn:    strings.TrimSpace(x.ListedOn),
	}
	if r.DataID == "" {
		r.DataID = "N/A"
	}
	r.DeriveFullName()

	for _, a := range x.Aliases {
		if name := strings.TrimSpace(a.Name); name != "" {
			r.AliasNames = append(r.AliasNames, name)
		}
	}
	for _, c := range []string{x.Comments1, x.Comments2, x.Comments3, x.Comments4} {
		if c = strings.TrimSpace(c); c != "" {
			r.Comments = append(r.Comments, c)
		}
	}
	for _, b := range x.Births {
		if s := b.String(); s != "" {
			r.DatesOfBirth = append(r.DatesOfBirth, s)
		}
	}
	for _, p := range x.Places {
		if s := joinNonEmpty(", ", p.City, p.State, p.Country); s != "" {
			r.PlacesOfBirth = append(r.PlacesOfBirth, s)
		}
	}
	for _, a := range x.Addresses {
		if s := a.String(); s != "" {
			r.Addresses = append(r.Addresses, s)
		}
	}
	for _, d := range x.Documents {
		if s := d.String(); s != "" {
			r.Documents = append(r.Documents, s)
		}
	}
	return r
}

func (b xmlBirth) String() string {
	var value string
	switch {
	case strings.TrimSpace(b.Date) != "":
		value = strings.TrimSpace(b.Date)
	case strings.TrimSpace(b.Year) != "":
		value = strings.TrimSpace(b.Year)
	case strings.TrimSpace(b.FromYear) != "" && strings.TrimSpace(b.ToYear) != "":
		value = strings.TrimSpace(b.FromYear) + "-" + strings.TrimSpace(b.ToYear)
	default:
		return ""
	}
	if t := strings.TrimSpace(b.Type); t != "" {
		return t + ": " + value
	}
	return value
}

func (a xmlAddress) String() string {
	s := joinNonEmpty(", ", a.Street, a.City, a.State, a.Country)
	if note := strings.TrimSpace(a.Note); note != "" {
		s += " (" + note + ")"
	}
	return s
}

func (d xmlDoc) String() string {
	parts := []string{strings.TrimSpace(d.Type)}
	if n := strings.TrimSpace(d.Number); n != "" {
		parts = append(parts, "Number: "+n)
	}
	if c := strings.TrimSpace(d.IssuingCountry); c != "" {
		parts = append(parts, "Country: "+c)
	}
	if dt := strings.TrimSpace(d.DateOfIssue); dt != "" {
		parts = append(parts, "Issue Date: "+dt)
	}
	if n := strings.TrimSpace(d.Note); n != "" {
		parts = append(parts, "Note: "+n)
	}
	return joinNonEmpty("; ", parts...)
}

func joinValues(values []string) string {
	return joinNonEmpty(", ", values...)
}

func joinNonEmpty(sep string, values ...string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}
