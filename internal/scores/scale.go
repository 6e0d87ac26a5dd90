package scores

// Dial thresholds. The dial space [0, 1] partitions into five bands:
//
//	0    to 0.15: quiet
//	0.15 to 0.38: low
//	0.38 to 0.62: medium
//	0.62 to 0.85: loud
//	0.85 to 1.0:  blaring
const (
	LowThreshold     = 0.15
	MediumThreshold  = 0.38
	LoudThreshold    = 0.62
	BlaringThreshold = 0.85

	// At or above this threshold every comment is shown.
	ShowEverythingThreshold = 0.99
	// At or below this threshold every comment is hidden.
	HideEverythingThreshold = 0.01
	// Comments without scores are hidden below this threshold.
	HideUnsupportedLanguageThreshold = 0.3

	// likelyToReject is noisy, so it is damped before comparison.
	LikelyToRejectDamping = 0.6
)

// Range is a closed numeric interval [A, B].
type Range struct {
	A, B float64
}

// Classifier range carrying useful signal; below 0.4 there is no confidence
// that the comment belongs to the attribute at all.
var (
	signalRange = Range{0.4, 1.0}
	dialRange   = Range{LowThreshold, BlaringThreshold}
)

// Linscale maps x linearly from one range onto another. It does not clamp:
// an x outside from yields a value outside to. from.A must differ from from.B.
func Linscale(x float64, from, to Range) float64 {
	frac := (x - from.A) / (from.B - from.A)
	return frac*(to.B-to.A) + to.A
}

// ScaleEnabledAttributeScore maps a raw classifier score onto the dial, sending
// [0.4, 1.0] to [LowThreshold, BlaringThreshold].
func ScaleEnabledAttributeScore(score float64) float64 {
	return Linscale(score, signalRange, dialRange)
}

// Band is a named severity range of the dial.
type Band string

const (
	Quiet   Band = "Quiet"
	Low     Band = "Low"
	Medium  Band = "Medium"
	Loud    Band = "Loud"
	Blaring Band = "Blaring"
)

// Bands lists bands from quietest to loudest with their inclusive lower bounds.
var Bands = []struct {
	Band  Band
	Lower float64
}{
	{Quiet, 0},
	{Low, LowThreshold},
	{Medium, MediumThreshold},
	{Loud, LoudThreshold},
	{Blaring, BlaringThreshold},
}

// BandFor returns the band containing x, checking from the loudest band down.
func BandFor(x float64) Band {
	switch {
	case x >= BlaringThreshold:
		return Blaring
	case x >= LoudThreshold:
		return Loud
	case x >= MediumThreshold:
		return Medium
	case x >= LowThreshold:
		return Low
	default:
		return Quiet
	}
}
