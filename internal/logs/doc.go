// Package logs reads and follows the daemon log file for the CLI.
package logs
