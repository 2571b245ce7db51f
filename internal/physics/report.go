package physics

// Evaluate assembles a DrillingPhysicsReport for the current packet given
// the rolling history window (oldest first) and formation hardness.
func Evaluate(wob, rop, rpm, torque, bitDiameterIn, mudWeightIn, flowIn, flowOut,
	pitVolPrev, pitVolNow, dtHours, fractureGradient, ecd, hardness float64,
	history []Sample, prevDXCAvg float64) DrillingPhysicsReport {

	mse := MSE(wob, torque, rpm, rop, bitDiameterIn)
	dExp := DExponent(rop, rpm, wob, bitDiameterIn)
	dxc := DXC(dExp, mudWeightIn)
	flowBal := FlowBalance(flowIn, flowOut)
	pitRate := PitRate(pitVolPrev, pitVolNow, dtHours)

	wobs := make([]float64, len(history))
	rops := make([]float64, len(history))
	for i, s := range history {
		wobs[i] = s.WOB
		rops[i] = s.ROP
	}
	wobTrend, wobR2 := Trend(wobs)
	ropTrend, ropR2 := Trend(rops)

	founder, founderSeverity, optimalWOB := FounderDetect(history)
	dysfunctions := DetectDysfunctions(history, flowBal, pitRate)

	return DrillingPhysicsReport{
		MSE:             mse,
		MSEEfficiency:   MSEEfficiency(mse, hardness),
		DExponent:       dExp,
		DXC:             dxc,
		FlowBalance:     flowBal,
		PitRate:         pitRate,
		ECDMargin:       ECDMargin(fractureGradient, ecd),
		WOBTrend:        wobTrend,
		WOBTrendR2:      wobR2,
		ROPTrend:        ropTrend,
		ROPTrendR2:      ropR2,
		FounderDetected: founder,
		FounderSeverity: founderSeverity,
		OptimalWOB:      optimalWOB,
		Dysfunctions:    dysfunctions,
		FormationChange: FormationChangeDetected(prevDXCAvg, dxc),
	}
}

// Enhance augments a DrillingPhysicsReport with sustain/consistency/
// confidence: the report is sustained when the history holds at least
// minSustainSamples samples, consistency is the mean of the WOB and ROP
// trend R², and confidence is that consistency scaled by 1.2 (clamped to
// 1) when sustained.
func Enhance(report DrillingPhysicsReport, history []Sample, minSustainSamples int) EnhancedPhysicsReport {
	sustained := len(history) >= minSustainSamples
	consistency := (report.WOBTrendR2 + report.ROPTrendR2) / 2
	confidence := consistency
	if sustained {
		confidence = clamp(confidence*1.2, 0, 1)
	}
	return EnhancedPhysicsReport{
		DrillingPhysicsReport: report,
		IsSustained:           sustained,
		TrendConsistency:      consistency,
		ConfidenceFactor:      confidence,
	}
}
