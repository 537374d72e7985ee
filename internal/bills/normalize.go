// Package bills maps heterogeneous upstream payloads into the canonical
// BillRecord shape consumed by the rest of the application.
package bills

import (
	"fmt"
	"strings"

	"github.com/civicpulse/billtracker/internal/classify"
	"github.com/civicpulse/billtracker/internal/congress"
	"github.com/civicpulse/billtracker/models"
)

// defaultCongress is assumed when the upstream omits the congress number.
const defaultCongress = "118"

// Normalize builds a BillRecord from an upstream payload. Missing upstream
// fields become zero values; normalization never fails. Topics are recomputed
// on every call. When detail is true the payload is the authoritative detail
// shape and sponsor/summary fields are populated from it.
func Normalize(raw congress.RawBill, detail bool) models.BillRecord {
	billType := strings.ToLower(raw.Type)
	congressNum := raw.Congress.String()
	if congressNum == "" {
		congressNum = defaultCongress
	}

	chamber := normalizeChamber(raw.OriginChamber)

	status := ""
	if raw.LatestAction != nil {
		status = raw.LatestAction.Text
	}

	sponsor := ""
	summary := ""
	if detail {
		if len(raw.Sponsors) > 0 {
			sponsor = raw.Sponsors[0].FullName
		}
		summary = raw.Summary
	}

	return models.BillRecord{
		BillID:         BillID(billType, raw.Number, congressNum),
		Title:          raw.Title,
		Summary:        summary,
		Sponsor:        sponsor,
		Chamber:        chamber,
		IntroducedDate: raw.IntroducedDate,
		LatestAction:   status,
		Status:         status,
		Topics:         classify.Topics(raw.Title, summary),
		SourceURL:      SourceURL(congressNum, raw.Number, chamber),
		BillType:       billType,
		BillNumber:     raw.Number,
		Congress:       congressNum,
	}
}

// BillID composes the stable bill identity, e.g. "hr1234-118".
func BillID(billType, number, congressNum string) string {
	if billType == "" || number == "" {
		return "unknown-" + congressNum
	}
	return billType + number + "-" + congressNum
}

// SourceURL returns the canonical congress.gov link for a bill.
func SourceURL(congressNum, number string, chamber models.Chamber) string {
	if number == "" {
		return ""
	}
	chamberPath := "senate-bill"
	if chamber == models.ChamberHouse {
		chamberPath = "house-bill"
	}
	return fmt.Sprintf("https://www.congress.gov/bill/%sth-congress/%s/%s", congressNum, chamberPath, number)
}

func normalizeChamber(origin string) models.Chamber {
	switch strings.ToLower(origin) {
	case "house":
		return models.ChamberHouse
	case "senate":
		return models.ChamberSenate
	default:
		return ""
	}
}
