// Package objectstore abstracts the source and destination object stores the
// pipeline reads assets from and writes partner deliveries to.
package objectstore
