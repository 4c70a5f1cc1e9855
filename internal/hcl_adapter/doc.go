// Package hcl_adapter loads job files written in HCL into the
// format-agnostic config model.
//
// A job file may declare `variable` blocks, at most one `defaults` block
// across all loaded files, and any number of labelled `job` blocks.
// Variables are collected from every file before any job is decoded, so a
// job can reference a variable declared in a sibling file.
package hcl_adapter
