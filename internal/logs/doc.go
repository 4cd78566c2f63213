// Package logs reads the tacreview log file for the logs command: the last N
// lines, optionally filtered to one run, and a polling follow mode.
package logs
