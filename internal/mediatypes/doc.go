// Package mediatypes holds the video extension allow-list used to classify
// files during a scan, plus MIME lookups for the HTTP layer.
//
// It has no dependencies beyond the standard library so any package can
// import it without creating cycles.
//
//	if mediatypes.IsVideoFile("Holiday.MKV") {
//	    // indexed
//	}
package mediatypes
