package commission

import (
	"testing"

	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	settingsdomain "github.com/smallbiznis/salesdesk/internal/settings/domain"
	"github.com/stretchr/testify/assert"
)

var rates = settingsdomain.Settings{
	StandardCommissionCents: 200,
	SelfCommissionCents:     300,
	ReferralCommissionCents: 200,
}

func TestIsSelfClose(t *testing.T) {
	cases := []struct {
		name   string
		closer string
		owner  string
		want   bool
	}{
		{name: "empty closer", closer: "", owner: "Alice", want: true},
		{name: "blank closer", closer: "   ", owner: "Alice", want: true},
		{name: "owner closed", closer: "Alice", owner: "Alice", want: true},
		{name: "padded owner", closer: " Alice ", owner: "Alice", want: true},
		{name: "other closer", closer: "Dana", owner: "Alice", want: false},
		{name: "case sensitive", closer: "alice", owner: "Alice", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsSelfClose(tc.closer, tc.owner))
		})
	}
}

func TestComputeBaseCommission(t *testing.T) {
	self := appointmentdomain.Appointment{Stage: appointmentdomain.StageOnboarded}
	assert.EqualValues(t, 300, ComputeBaseCommission(self, "Alice", rates))

	closed := appointmentdomain.Appointment{Stage: appointmentdomain.StageOnboarded, CloserName: "Dana"}
	assert.EqualValues(t, 200, ComputeBaseCommission(closed, "Alice", rates))
}

func TestResolveBase(t *testing.T) {
	appt := appointmentdomain.Appointment{CloserName: "Dana"}
	assert.EqualValues(t, 200, ResolveBase(appt, "Alice", rates, nil))

	explicit := int64(750)
	assert.EqualValues(t, 750, ResolveBase(appt, "Alice", rates, &explicit))

	zero := int64(0)
	assert.EqualValues(t, 0, ResolveBase(appt, "Alice", rates, &zero))
}

func TestResync(t *testing.T) {
	updated := settingsdomain.Settings{StandardCommissionCents: 500, SelfCommissionCents: 600}

	onboarded := appointmentdomain.Appointment{
		Stage:             appointmentdomain.StageOnboarded,
		CloserName:        "Dana",
		EarnedAmountCents: 1200,
		RuleBonusCents:    1000,
	}
	assert.EqualValues(t, 1500, Resync(onboarded, "Alice", updated))

	manual := onboarded
	manual.ManualAmount = true
	assert.EqualValues(t, 1200, Resync(manual, "Alice", updated))

	pending := appointmentdomain.Appointment{Stage: appointmentdomain.StagePending, EarnedAmountCents: 0}
	assert.EqualValues(t, 0, Resync(pending, "Alice", updated))
}
