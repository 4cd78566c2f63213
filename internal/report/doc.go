// Package report renders an analysis.Summary for machines and people.
//
// MachineReadable produces the summary.json document; HumanReadable produces
// the sectioned text report. Neither computes anything: values are copied or
// formatted straight from the Summary.
package report
