package agents_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/agents"
	"github.com/ashton-dyke/sairen-os/internal/baseline"
	"github.com/ashton-dyke/sairen-os/internal/physics"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
	"github.com/ashton-dyke/sairen-os/internal/wits"
)

func drillingPacket() wits.Packet {
	return wits.Packet{
		Timestamp: 1, BitDepth: 10000, ROP: 80, WOB: 25, RPM: 120, Torque: 8000,
		MSE: 18000, SPP: 3200, ECD: 12.5, FlowIn: 600, FlowOut: 600,
		PitVolume: 500, MudWeightIn: 10.5, RigState: wits.Drilling,
	}
}

func TestTactical_NoTicketOnHealthyPacket(t *testing.T) {
	tac := agents.NewTactical(agents.DefaultTriggerThresholds(), baseline.NewManager(500))
	_, adv := tac.Process(drillingPacket(), nil, 20000, 16.5, 0, 1.0/3600, time.Now())
	require.Nil(t, adv)
}

func TestTactical_FiresWellControlOnFlowImbalance(t *testing.T) {
	tac := agents.NewTactical(agents.DefaultTriggerThresholds(), baseline.NewManager(500))
	p := drillingPacket()
	p.FlowOut = p.FlowIn + 25 // 25 gpm imbalance, above critical 20
	_, adv := tac.Process(p, nil, 20000, 16.5, 0, 1.0/3600, time.Now())
	require.NotNil(t, adv)
	require.Equal(t, ticket.WellControl, adv.Category)
	require.Equal(t, ticket.Critical, adv.Severity)
}

func TestTactical_CooldownSuppressesRepeatNonCriticalTicket(t *testing.T) {
	tac := agents.NewTactical(agents.DefaultTriggerThresholds(), baseline.NewManager(500))
	p := drillingPacket()
	p.FlowOut = p.FlowIn + 12 // above High(10) but below Critical(20)
	now := time.Now()
	_, first := tac.Process(p, nil, 20000, 16.5, 0, 1.0/3600, now)
	require.NotNil(t, first)

	_, second := tac.Process(p, nil, 20000, 16.5, 0, 1.0/3600, now.Add(5*time.Second))
	require.Nil(t, second)
}

func TestTactical_NoTicketOutsideDrillingOrReaming(t *testing.T) {
	tac := agents.NewTactical(agents.DefaultTriggerThresholds(), baseline.NewManager(500))
	p := drillingPacket()
	p.RigState = wits.Idle
	p.FlowOut = p.FlowIn + 25
	_, adv := tac.Process(p, nil, 20000, 16.5, 0, 1.0/3600, time.Now())
	require.Nil(t, adv)
}

func TestStrategic_WellControlConfirmsCriticalOnSustainedImbalance(t *testing.T) {
	strat := agents.NewStrategic()
	adv := &ticket.Advisory{Category: ticket.WellControl, Timestamp: time.Now()}
	report := physics.Enhance(physics.DrillingPhysicsReport{}, make([]physics.Sample, 6), 5)

	v := strat.VerifyTicket(adv, report, []float64{16, 17, 18, 16, 17}, []float64{2, 3, 2, 2, 3}, nil, nil, 0)
	require.Equal(t, ticket.Confirmed, v.Status)
	require.Equal(t, ticket.Critical, v.FinalSeverity)
}

func TestStrategic_WellControlRejectsTransientSmallImbalance(t *testing.T) {
	strat := agents.NewStrategic()
	adv := &ticket.Advisory{Category: ticket.WellControl, Timestamp: time.Now()}
	report := physics.Enhance(physics.DrillingPhysicsReport{}, nil, 5)

	v := strat.VerifyTicket(adv, report, []float64{1, 2, 1, -1}, []float64{0.5, 0.5}, nil, nil, 0)
	require.Equal(t, ticket.Rejected, v.Status)
	require.Equal(t, ticket.Healthy, v.FinalSeverity)
}

func TestStrategic_MechanicalConfirmsFounder(t *testing.T) {
	strat := agents.NewStrategic()
	adv := &ticket.Advisory{Category: ticket.Mechanical, Timestamp: time.Now()}
	base := physics.DrillingPhysicsReport{FounderDetected: true, FounderSeverity: 0.8, OptimalWOB: 22}
	report := physics.Enhance(base, make([]physics.Sample, 6), 5)

	v := strat.VerifyTicket(adv, report, nil, nil, nil, nil, 0)
	require.Equal(t, ticket.Confirmed, v.Status)
	require.Equal(t, ticket.High, v.FinalSeverity)
}
