package domain

import "strings"

// ClientRecord represents one row of the client roster
type ClientRecord struct {
	SerialNumber string `json:"sn"`
	FileNo       string `json:"file_no,omitempty"`
	BRN          string `json:"brn,omitempty"`
	Company      string `json:"company,omitempty"`
	Officer      string `json:"officer"`
	Role         string `json:"role,omitempty"`
}

// Key returns the client serial number with surrounding whitespace removed
func (c ClientRecord) Key() string {
	return strings.TrimSpace(c.SerialNumber)
}

// HasKey returns true if the row carries a usable client key
func (c ClientRecord) HasKey() bool {
	return c.Key() != ""
}
