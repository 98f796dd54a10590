// Package manifest persists pipeline run history in SQLite.
//
// Completion markers themselves stay file-existence checks in the working
// directory (see the stage package); the manifest is the audit trail behind
// them. Every skip, completion, and failure decision the driver makes is
// recorded per run so the status command can show why a stage did or did not
// execute.
package manifest
