// Package pipeline drives stage handlers against a working directory in
// fixed priority order, with file-existence completion markers providing
// idempotence and a sqlite manifest providing an audit trail.
package pipeline
