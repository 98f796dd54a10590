package preprocess

// Options carries the preprocessing parameters shared by the stage
// handlers. Filters are forwarded verbatim to the host's registration
// filter flags, so percentage forms ("90%") and absolute values ("2.5")
// both work.
type Options struct {
	// Extension is the FITS data extension without the leading dot,
	// for example "fit".
	Extension string

	// BackgroundFilter through WFWHMFilter select which registered
	// frames survive into the stack.
	BackgroundFilter string
	RoundFilter      string
	StarsFilter      string
	WFWHMFilter      string

	// Feather is the stacking feather radius in pixels. "0" disables it.
	Feather string

	// DrizzleScale enables drizzle integration when non-empty, for
	// example "2" or "0.5". Pixel fraction is derived as 1/scale.
	DrizzleScale string

	// ExtractBackground runs a per-frame background subtraction on the
	// calibrated sequence before plate solving.
	ExtractBackground bool

	// PlateSolve astrometrically solves the sequence before
	// registration, which also unlocks max framing.
	PlateSolve bool

	// FocalLength is an optional focal length hint in millimetres for
	// plate solving.
	FocalLength string

	// NoCalibration skips master construction and light calibration;
	// lights are only converted into a sequence.
	NoCalibration bool

	// Sessions lists additional session directories whose calibrated
	// lights are merged into the primary working directory before
	// registration. Each entry must contain its own lights/ (and
	// calibration) subdirectories.
	Sessions []string
}

// lightSequence returns the name of the calibrated light sequence the
// downstream stages operate on.
func (o Options) lightSequence() string {
	if o.ExtractBackground {
		return "bkg_pp_light"
	}
	return "pp_light"
}

// registeredSequence returns the sequence produced by registering the
// calibrated lights.
func (o Options) registeredSequence() string {
	return "r_" + o.lightSequence()
}

// seqFile returns the on-disk sequence index file for a sequence name.
func seqFile(seq string) string {
	return seq + "_.seq"
}
