package ledger

import (
	"testing"
	"time"

	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportReferralReport_MatchesByName(t *testing.T) {
	node := mustNode(t)
	cycleID := node.Generate()
	now := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)

	appt := onboarded(node, "John Doe", "(555) 999-0000")
	seeded, err := ApplyReferralUpdate(appt, 2, &cycleID, 200, now, node)
	require.NoError(t, err)

	rows := []ReportRow{{Name: "john doe", Phone: "5551234567", ReferralCount: 5}}
	result, err := ImportReferralReport(rows, []appointmentdomain.Appointment{seeded.Appointment}, 200, &cycleID, now, node)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 0, result.Unmatched)
	require.Len(t, result.Incentives, 1)
	assert.Equal(t, int64(600), result.Incentives[0].AmountCents)
	assert.Equal(t, "Ref Bonus Delta: 3 Lead(s) from John Doe", result.Incentives[0].Label)
	assert.Equal(t, int64(600), result.BonusCents)

	require.Len(t, result.Appointments, 1)
	assert.Equal(t, int64(5), result.Appointments[0].ReferralCount)
	assert.Equal(t, int64(5), result.Appointments[0].HistoryTotal())
}

func TestImportReferralReport_PhoneSubstringAndUnmatched(t *testing.T) {
	node := mustNode(t)
	cycleID := node.Generate()
	now := time.Now().UTC()

	byPhone := onboarded(node, "Alice Smith", "+1 (555) 123-4567")
	pending := onboarded(node, "Pending Person", "5550001111")
	pending.Stage = appointmentdomain.StagePending

	rows := []ReportRow{
		{Name: "A. Smith", Phone: "555-123-4567", ReferralCount: 1},
		{Name: "Pending Person", Phone: "", ReferralCount: 4},
		{Name: "Nobody", Phone: "n/a", ReferralCount: 2},
	}
	result, err := ImportReferralReport(rows, []appointmentdomain.Appointment{pending, byPhone}, 200, &cycleID, now, node)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 2, result.Unmatched)
	require.Len(t, result.Appointments, 1)
	assert.Equal(t, byPhone.ID, result.Appointments[0].ID)
}

func TestImportReferralReport_SkipsNonIncreasesAndChainsRows(t *testing.T) {
	node := mustNode(t)
	cycleID := node.Generate()
	now := time.Now().UTC()

	appt := onboarded(node, "Bob Lee", "")
	appt.ReferralCount = 3
	appt.ReferralHistory = append(appt.ReferralHistory, appointmentdomain.ReferralHistoryEntry{ID: node.Generate(), CountDelta: 3})

	rows := []ReportRow{
		{Name: "bob lee", ReferralCount: 2},
		{Name: "Bob Lee ", ReferralCount: 4},
		{Name: "BOB LEE", ReferralCount: 6},
	}
	result, err := ImportReferralReport(rows, []appointmentdomain.Appointment{appt}, 100, &cycleID, now, node)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 2, result.Applied)
	assert.Equal(t, int64(300), result.BonusCents)
	require.Len(t, result.Appointments, 1)
	assert.Equal(t, int64(6), result.Appointments[0].ReferralCount)
	assert.Len(t, result.Appointments[0].ReferralHistory, 3)
}

func TestImportReferralReport_RequiresActiveCycle(t *testing.T) {
	node := mustNode(t)
	appt := onboarded(node, "John Doe", "")

	_, err := ImportReferralReport([]ReportRow{{Name: "John Doe", ReferralCount: 1}}, []appointmentdomain.Appointment{appt}, 100, nil, time.Now(), node)
	assert.ErrorIs(t, err, ErrNoActiveCycle)
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "15551234567", DigitsOnly("+1 (555) 123-4567"))
	assert.Equal(t, "", DigitsOnly("n/a"))
	assert.Equal(t, "jane doe", NormalizeName("  Jane Doe "))
}
