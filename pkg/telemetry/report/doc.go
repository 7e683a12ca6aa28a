// Package report periodically logs a summary of the transcript (mode,
// record count, appends and replays since start) and refreshes the
// transcript gauges. The schedule comes from telemetry.report.schedule.
package report
