package engine

// RugProbability estimates how likely a token is a scam or abandonment
// risk, 0-100, from the already-computed sub-scores. Inverted risk and
// authenticity raise the estimate; cluster suspicion feeds in directly.
func RugProbability(riskScore, authenticityScore, clusterScore float64) float64 {
	prob := (100-riskScore)*0.4 + (100-authenticityScore)*0.2 + clusterScore*0.4
	if prob < 0 {
		return 0
	}
	if prob > 100 {
		return 100
	}
	return prob
}
