// Package launcher turns loaded jobs into command lines and starts them,
// either through the LSF scheduler or as local processes, with a bounded
// number of dispatches in flight.
package launcher
