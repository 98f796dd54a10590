// Package stage defines the pipeline's stage model: the closed set of stage
// kinds, their fixed execution priority, the request/handler contract the
// driver runs, completion markers, and derived-artifact naming.
//
// The priority order is load-bearing: calibration before background
// extraction, registration before stacking, and sharpening before denoising.
// Callers may list requests in any order; Sort restores the canonical one.
package stage
