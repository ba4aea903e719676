// Package stage defines the contract pipeline stages implement and the
// health records they report.
package stage
