// Package wits defines the WitsPacket data model shared by every downstream
// component, the rig-state classifier, and the parameter-change tracker.
package wits

// RigState is the discrete operating mode a packet is stamped with.
type RigState int

const (
	Idle RigState = iota
	Drilling
	Reaming
	Circulating
	Connection
	TrippingIn
	TrippingOut
)

func (s RigState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Drilling:
		return "Drilling"
	case Reaming:
		return "Reaming"
	case Circulating:
		return "Circulating"
	case Connection:
		return "Connection"
	case TrippingIn:
		return "TrippingIn"
	case TrippingOut:
		return "TrippingOut"
	default:
		return "Unknown"
	}
}

// Packet is one timestamped snapshot of drilling channels. The sixteen
// named ML features mirror the order every CfC network expects them in.
type Packet struct {
	Timestamp int64

	BitDepth    float64
	ROP         float64
	WOB         float64
	RPM         float64
	Torque      float64
	MSE         float64
	SPP         float64
	DExponent   float64
	HookLoad    float64
	ECD         float64
	FlowIn      float64
	FlowOut     float64
	PitVolume   float64
	PitRate     float64
	FlowBalance float64
	DXC         float64
	PumpSPM     float64
	MudWeightIn float64
	GasUnits    float64
	H2S         float64

	RigState                RigState
	RegimeID                int
	SecondsSinceParamChange int64
}

// Features returns the fixed 16-wide ML feature vector in the canonical
// order the NCP wiring's feature map and the physics engine both assume:
// wob, rop, rpm, torque, mse, spp, d_exponent, hookload, ecd, flow_balance,
// pit_rate, dxc, pump_spm, mud_weight_in, gas_units, pit_volume.
func (p Packet) Features() []float64 {
	return []float64{
		p.WOB, p.ROP, p.RPM, p.Torque, p.MSE, p.SPP, p.DExponent, p.HookLoad,
		p.ECD, p.FlowBalance, p.PitRate, p.DXC, p.PumpSPM, p.MudWeightIn,
		p.GasUnits, p.PitVolume,
	}
}
