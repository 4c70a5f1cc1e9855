// Package aggregate turns a directory of finished test runs into a
// summary table. Each run directory contributes one row: flags and the
// depth multiplier are read from the directory name, and the metrics are
// scraped from the `TEST,...` lines of its log files.
package aggregate
