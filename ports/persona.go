package ports

// PersonaProvider exposes the simulated respondent's profile to the answer
// generators. Only the satisfaction scalar is consumed here
type PersonaProvider interface {
	// SatisfactionTendency returns a value in [0,1], or ok=false when the
	// persona has no opinion. Callers treat failure and absence alike
	SatisfactionTendency() (value float64, ok bool)
}
