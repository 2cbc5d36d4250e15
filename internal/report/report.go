package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banking/sanctions-screening/internal/domain"
)

const (
	heavyRule = "================================================================================"
	midRule   = "=================================================="
	lightRule = "----------------------------------------"
)

// Render writes the complete suspicious persons report for a screening run
func Render(w io.Writer, run *domain.ScreeningRun, generatedAt time.Time) error {
	if len(run.SuspiciousIdentities) == 0 {
		_, err := io.WriteString(w, "No suspicious persons found.")
		return err
	}

	var b strings.Builder

	bySerial := make(map[string]domain.ClientRecord, len(run.SuspiciousClients))
	for _, c := range run.SuspiciousClients {
		if _, ok := bySerial[c.SerialNumber]; !ok {
			bySerial[c.SerialNumber] = c
		}
	}

	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("COMPLETE SUSPICIOUS PERSONS REPORT WITH FULL CLIENT DATA")
	line(heavyRule)
	line("Report generated on: %s", generatedAt.Format("2006-01-02 15:04:05"))
	line("Screening ID: %s", run.ID)
	line("Total suspicious UN individuals: %d", len(run.SuspiciousIdentities))
	line("Total suspicious client records: %d", len(run.SuspiciousClients))
	if len(run.Skipped) > 0 {
		line("Officer names not screened (too many name parts): %d", len(run.Skipped))
	}
	line("")

	for i, ident := range run.SuspiciousIdentities {
		line("SUSPICIOUS PERSON #%d:", i+1)
		line(heavyRule)
		writeIdentity(line, ident, bySerial)
		line("")
		line(heavyRule)
		line("")
	}

	line("SUMMARY OF ALL SUSPICIOUS CLIENT DATA")
	line(heavyRule)
	for _, c := range run.SuspiciousClients {
		line("SN: %s", c.SerialNumber)
		writeClient(line, c)
		line(lightRule)
	}

	if len(run.Skipped) > 0 {
		line("")
		line("OFFICER NAMES NOT SCREENED")
		line(heavyRule)
		for _, s := range run.Skipped {
			line("SN: %s  Officer: %s  Name parts: %d  Reason: %s", s.ClientSN, s.Officer, s.TokenCount, s.Reason)
		}
	}

	_, err := io.WriteString(w, strings.TrimRight(b.String(), "\n"))
	return err
}

func writeIdentity(line func(string, ...interface{}), ident domain.SuspiciousIdentity, bySerial map[string]domain.ClientRecord) {
	line("UN DATAID: %s", ident.DataID)
	line("Full Name: %s", ident.FullName)
	optional := []struct{ label, value string }{
		{"Designation", ident.Designation},
		{"Title", ident.Title},
		{"Nationality", ident.Nationality},
		{"Listed On", ident.ListedOn},
	}
	for _, o := range optional {
		if o.value != "" {
			line("%s: %s", o.label, o.value)
		}
	}

	var parts []string
	names := ident.NameParts()
	for i, label := range []string{"First", "Second", "Third", "Fourth"} {
		if v := names[i]; v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	if len(parts) > 0 {
		line("Name Details: %s", strings.Join(parts, ", "))
	}

	if len(ident.DatesOfBirth) > 0 {
		line("Dates of Birth: %s", strings.Join(ident.DatesOfBirth, ", "))
	}
	if len(ident.PlacesOfBirth) > 0 {
		line("Places of Birth: %s", strings.Join(ident.PlacesOfBirth, ", "))
	}
	if len(ident.AliasNames) > 0 {
		line("Alias Names: %s", strings.Join(ident.AliasNames, ", "))
	}
	bulleted(line, "Addresses:", ident.Addresses)
	bulleted(line, "Documents:", ident.Documents)
	bulleted(line, "Comments:", ident.Comments)

	if len(ident.ClientMatches) == 0 {
		return
	}
	line("")
	line("CLIENT MATCHES WITH FULL DATA:")
	line(midRule)
	for _, m := range ident.ClientMatches {
		client, ok := bySerial[m.ClientSN]
		if !ok {
			line("CLIENT SN: %s - DATA NOT FOUND", m.ClientSN)
			line("  Matched Combination: %s", m.MatchedCombo)
			line(lightRule)
			continue
		}
		line("CLIENT SN: %s", m.ClientSN)
		writeClient(line, client)
		line("  Matched Combination: %s", m.MatchedCombo)
		line(lightRule)
	}
}

func writeClient(line func(string, ...interface{}), c domain.ClientRecord) {
	line("  File No: %s", c.FileNo)
	line("  BRN: %s", c.BRN)
	line("  Company: %s", c.Company)
	line("  Officer: %s", c.Officer)
	line("  Role: %s", c.Role)
}

func bulleted(line func(string, ...interface{}), title string, items []string) {
	if len(items) == 0 {
		return
	}
	line(title)
	for _, it := range items {
		line("  - %s", it)
	}
}

// FileName returns the report file name for a generation time
func FileName(at time.Time) string {
	return "complete_suspicious_report_" + at.Format("20060102_150405") + ".txt"
}

// WriteFile renders the report into dir and returns its path
func WriteFile(dir string, run *domain.ScreeningRun, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(dir, FileName(at))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := Render(f, run, at); err != nil {
		f.Close()
		return "", fmt.Errorf("render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}
