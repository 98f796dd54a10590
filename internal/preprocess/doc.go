// Package preprocess implements the calibration, background-extraction,
// plate-solving, registration, and stacking stages that turn raw session
// subdirectories (biases/, flats/, darks/, lights/) into a stacked master
// frame under the working directory.
//
// All pixel work happens inside the Siril host; this package only sequences
// host commands, checks completion markers in the process/ subdirectory, and
// merges multi-session calibration output into a single frame numbering.
package preprocess
