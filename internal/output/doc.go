// Package output renders console messages and environment listings.
package output
