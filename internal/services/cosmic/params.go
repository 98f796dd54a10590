package cosmic

import (
	"fmt"
	"strings"

	"astropipe/internal/services"
)

// Sharpening modes accepted by the Cosmic Clarity sharpen executable.
const (
	SharpenModeBoth           = "Both"
	SharpenModeStellarOnly    = "Stellar Only"
	SharpenModeNonStellarOnly = "Non-Stellar Only"
)

// Denoise modes accepted by the Cosmic Clarity denoise executable.
var denoiseModes = map[string]struct{}{
	"luminance": {},
	"full":      {},
	"separate":  {},
}

// SharpenParams carries the sharpen invocation parameters.
type SharpenParams struct {
	Mode               string
	StellarAmount      string
	NonStellarAmount   string
	NonStellarStrength string
}

// Normalize validates the mode and enforces its parameter constraints:
// Stellar Only zeroes the non-stellar amount and strength, Non-Stellar Only
// zeroes the stellar amount, regardless of caller-supplied values.
func (p SharpenParams) Normalize() (SharpenParams, error) {
	switch canonicalSharpenMode(p.Mode) {
	case SharpenModeBoth:
		p.Mode = SharpenModeBoth
	case SharpenModeStellarOnly:
		p.Mode = SharpenModeStellarOnly
		p.NonStellarAmount = "0"
		p.NonStellarStrength = "0"
	case SharpenModeNonStellarOnly:
		p.Mode = SharpenModeNonStellarOnly
		p.StellarAmount = "0"
	default:
		return SharpenParams{}, services.Wrap(services.ErrValidation, "sharpen", "mode",
			fmt.Sprintf("unsupported sharpening mode %q (Both, Stellar Only, Non-Stellar Only)", p.Mode), nil)
	}
	if p.StellarAmount == "" {
		p.StellarAmount = "0"
	}
	if p.NonStellarAmount == "" {
		p.NonStellarAmount = "0"
	}
	if p.NonStellarStrength == "" {
		p.NonStellarStrength = "0"
	}
	return p, nil
}

// Args renders the executable argument vector.
func (p SharpenParams) Args() []string {
	return []string{
		"--sharpening_mode", p.Mode,
		"--nonstellar_strength", p.NonStellarStrength,
		"--stellar_amount", p.StellarAmount,
		"--nonstellar_amount", p.NonStellarAmount,
		"--auto_detect_psf",
		"--sharpen_channels_separately",
	}
}

// Suffix returns the derived-filename fragment for these parameters.
func (p SharpenParams) Suffix() string {
	mode := strings.ToLower(strings.ReplaceAll(p.Mode, " ", ""))
	return fmt.Sprintf("_s%s-%s-%s-%s", mode, p.StellarAmount, p.NonStellarAmount, p.NonStellarStrength)
}

func canonicalSharpenMode(mode string) string {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(mode), "_", " "))
	switch normalized {
	case "both":
		return SharpenModeBoth
	case "stellar only", "stellar":
		return SharpenModeStellarOnly
	case "non-stellar only", "non stellar only", "non stellar", "non-stellar":
		return SharpenModeNonStellarOnly
	default:
		return ""
	}
}

// DenoiseParams carries the denoise invocation parameters.
type DenoiseParams struct {
	Mode     string
	Strength string
}

// Normalize validates the mode and fills strength defaults.
func (p DenoiseParams) Normalize() (DenoiseParams, error) {
	p.Mode = strings.ToLower(strings.TrimSpace(p.Mode))
	if _, ok := denoiseModes[p.Mode]; !ok {
		return DenoiseParams{}, services.Wrap(services.ErrValidation, "denoise", "mode",
			fmt.Sprintf("unsupported denoise mode %q (luminance, full, separate)", p.Mode), nil)
	}
	if strings.TrimSpace(p.Strength) == "" {
		p.Strength = "0.5"
	}
	return p, nil
}

// Args renders the executable argument vector.
func (p DenoiseParams) Args() []string {
	return []string{
		"--denoise_mode", p.Mode,
		"--denoise_strength", p.Strength,
		"--separate_channels",
	}
}

// Suffix returns the derived-filename fragment for these parameters.
func (p DenoiseParams) Suffix() string {
	return fmt.Sprintf("_d%s-%s", p.Mode, p.Strength)
}
