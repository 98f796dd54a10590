// Package enhance implements the per-file enhancement stages: background
// extraction, denoising, sharpening, color calibration, and stretching.
// Each stage walks the working directory's image artifacts and produces a
// parameter-suffixed variant per file, leaving the source artifact in
// place. Artifacts produced earlier in the same run are left alone so a
// stage never enhances another stage's fresh output.
package enhance
