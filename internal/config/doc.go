// Package config defines the format-agnostic job model, the layered
// settings that format adapters decode into, and the Loader interface
// implemented by those adapters.
//
// Settings are partial: every field is optional so that a `defaults`
// section and a job can each set only what they care about. Build folds
// program defaults, the defaults section and the job together into a
// fully resolved Job.
package config
