package ledger

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
)

// ReportRow is one line of an external referral report.
type ReportRow struct {
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	ReferralCount int64      `json:"referral_count"`
	Date          *time.Time `json:"date,omitempty"`
}

// ImportResult lists every appointment that changed and the incentives created for it.
type ImportResult struct {
	Appointments []appointmentdomain.Appointment `json:"appointments"`
	Incentives   []incentivedomain.Incentive     `json:"incentives"`
	Applied      int                             `json:"applied"`
	Skipped      int                             `json:"skipped"`
	Unmatched    int                             `json:"unmatched"`
	BonusCents   int64                           `json:"bonus_cents"`
}

// ImportReferralReport matches report rows against onboarded appointments and
// applies every increase through ApplyReferralUpdate.
//
// A row matches the first onboarded appointment whose normalised name equals the
// row's, or whose digits-only phone contains the row's digits. Rows that match
// nothing are counted, never rejected. Rows whose total does not exceed the
// current count are skipped. Later rows see the effects of earlier ones.
func ImportReferralReport(rows []ReportRow, appointments []appointmentdomain.Appointment, rateCents int64, activeCycleID *snowflake.ID, now time.Time, genID *snowflake.Node) (ImportResult, error) {
	result := ImportResult{}
	if activeCycleID == nil {
		return result, ErrNoActiveCycle
	}

	working := make([]appointmentdomain.Appointment, len(appointments))
	for i, appt := range appointments {
		working[i] = appt.Clone()
	}
	touched := make(map[snowflake.ID]int)
	var order []snowflake.ID

	for _, row := range rows {
		idx := findMatch(working, row)
		if idx < 0 {
			result.Unmatched++
			continue
		}

		current := working[idx]
		if row.ReferralCount <= current.ReferralCount {
			result.Skipped++
			continue
		}

		at := now
		if row.Date != nil && !row.Date.IsZero() {
			at = *row.Date
		}

		update, err := ApplyReferralUpdate(current, row.ReferralCount, activeCycleID, rateCents, at, genID)
		if err != nil {
			return ImportResult{}, err
		}
		update.Appointment.UpdatedAt = now
		if update.Incentive != nil {
			delta := row.ReferralCount - current.ReferralCount
			update.Incentive.Label = ImportLabel(delta, current.Name)
			result.Incentives = append(result.Incentives, *update.Incentive)
			result.BonusCents += update.Incentive.AmountCents
		}

		working[idx] = update.Appointment
		if _, ok := touched[current.ID]; !ok {
			order = append(order, current.ID)
		}
		touched[current.ID] = idx
		result.Applied++
	}

	for _, id := range order {
		result.Appointments = append(result.Appointments, working[touched[id]])
	}
	return result, nil
}

func findMatch(appointments []appointmentdomain.Appointment, row ReportRow) int {
	name := NormalizeName(row.Name)
	phone := DigitsOnly(row.Phone)
	for i, appt := range appointments {
		if !appt.IsOnboarded() {
			continue
		}
		if name != "" && NormalizeName(appt.Name) == name {
			return i
		}
		if phone != "" && strings.Contains(DigitsOnly(appt.Phone), phone) {
			return i
		}
	}
	return -1
}

// NormalizeName lowercases and trims a client name for matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DigitsOnly strips everything but decimal digits from a phone number.
func DigitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
