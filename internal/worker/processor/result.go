package processor

import "animrender/internal/pkg/errors"

type outcome int

const (
	phaseOK outcome = iota
	// phaseRecoverable: the step failed but the job continues with degraded output.
	phaseRecoverable
	// phaseTerminal: the job fails with err and message.
	phaseTerminal
)

// phaseResult is what every pipeline step reports back to Process.
type phaseResult struct {
	outcome outcome
	err     error
	message string
}

func ok() phaseResult { return phaseResult{outcome: phaseOK} }

func terminal(err error, message string) phaseResult {
	return phaseResult{outcome: phaseTerminal, err: err, message: message}
}

// classify turns a step error into a result, using errors.IsRecoverable to
// decide whether the job can go on.
func classify(err error, message string) phaseResult {
	switch {
	case err == nil:
		return ok()
	case errors.IsRecoverable(err):
		return phaseResult{outcome: phaseRecoverable, err: err, message: message}
	default:
		return terminal(err, message)
	}
}

// detail is the diagnostic text stored on the job.
func detail(err error) string {
	if err == nil {
		return ""
	}
	var coded *errors.Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return err.Error()
}
