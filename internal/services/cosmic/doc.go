// Package cosmic invokes the Seti Astro Cosmic Clarity suite (sharpen and
// denoise) as blocking subprocesses.
//
// Executable discovery follows the suite's own Siril setup scripts: a
// single-line conf file under the Siril config directory holds the absolute
// executable path, and the tool's input/output directories live next to the
// executable. Progress is scraped from the tool's free-text output via the
// NN.NN% pattern; this is a compatibility contract with Cosmic Clarity v5.4
// and later, which offer no structured progress channel. Non-matching,
// non-empty lines are opaque log lines, never errors.
package cosmic
