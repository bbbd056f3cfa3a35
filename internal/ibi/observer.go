package ibi

import "github.com/sirupsen/logrus"

// Event reports a state transition of the controller.
type Event struct {
	Iteration int
	State     State
	Skipped   bool    // simulation skipped because its trajectory exists
	Deviation float64 // RMS g(r) deviation, set on Advance
	// CompareFailed is set on Advance when no deviation could be computed.
	CompareFailed bool
	Err           error
}

type Observer interface {
	OnEvent(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// LogObserver writes every event to the package-level logrus logger.
type LogObserver struct{}

func (LogObserver) OnEvent(ev Event) {
	entry := logrus.WithFields(logrus.Fields{"iteration": ev.Iteration, "state": ev.State.String()})
	switch {
	case ev.Err != nil:
		entry.WithError(ev.Err).Error("iteration aborted")
	case ev.State == MaybeSimulate && ev.Skipped:
		entry.Warnf("trajectory %s exists, skipping simulation", TrajectoryName(ev.Iteration))
	case ev.State == Advance && ev.CompareFailed:
		entry.Warn("iteration complete, comparison failed")
	case ev.State == Advance:
		entry.WithField("deviation", ev.Deviation).Info("iteration complete")
	default:
		entry.Info("enter")
	}
}
