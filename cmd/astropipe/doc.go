// Command astropipe drives Siril and external AI enhancement tools
// through an idempotent, marker-skipping processing pipeline.
package main
