// Package printer models printer job states and their human-readable
// descriptions for the status page. Talking to the printers themselves is
// out of scope; states arrive from a StatusSource collaborator.
package printer

import "context"

// JobState is the state of a printer's current job
type JobState string

const (
	StateNoJob          JobState = "no_job"
	StatePrePrint       JobState = "pre_print"
	StatePrinting       JobState = "printing"
	StatePausing        JobState = "pausing"
	StatePaused         JobState = "paused"
	StateResuming       JobState = "resuming"
	StatePostPrint      JobState = "post_print"
	StateWaitCleanup    JobState = "wait_cleanup"
	StateWaitUserAction JobState = "wait_user_action"
	StateUnknown        JobState = "unknown" // treated as "printer off"
)

// StatusSource reports the current job state for a named printer
type StatusSource interface {
	JobState(ctx context.Context, printerName string) (JobState, error)
}

// Message returns the human-readable description for a job state
func Message(state JobState) string {
	switch state {
	case StateNoJob:
		return "The Printer is not currently working on a print"
	case StatePrinting:
		return "The Printer is currently working on a print"
	case StatePausing:
		return "The Printer is pausing the print"
	case StatePaused:
		return "The Printer is currently paused"
	case StateResuming:
		return "The Printer is resuming"
	case StatePrePrint:
		return "The Printer is currently getting ready to start a print"
	case StatePostPrint:
		return "The Printer is finished with a print"
	case StateWaitCleanup:
		return "The Printer is waiting for a member to clean up a finished print"
	case StateWaitUserAction:
		return "The Printer is waiting for a member to reset it"
	default:
		return "The Printer is currently turned off"
	}
}

// OfflineSource is a StatusSource that reports every printer as off. It is
// the default until a real printer integration is wired in.
type OfflineSource struct{}

func (OfflineSource) JobState(ctx context.Context, printerName string) (JobState, error) {
	return StateUnknown, nil
}
