package ibi

import "fmt"

// State is a step of the iteration state machine.
type State int

const (
	Idle State = iota
	BuildTable
	MaybeSimulate
	MeasureRDF
	Correct
	Advance
	Done
)

var stateNames = [...]string{
	Idle:          "idle",
	BuildTable:    "build-table",
	MaybeSimulate: "simulate",
	MeasureRDF:    "measure-rdf",
	Correct:       "correct",
	Advance:       "advance",
	Done:          "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Tag names the simulation of an iteration.
func Tag(i int) string { return fmt.Sprintf("cg-%02d", i) }

func TableName(i int) string      { return fmt.Sprintf("pair.table.%d", i) }
func TrajectoryName(i int) string { return Tag(i) + ".lammpstrj" }
func ImageName(i int) string      { return fmt.Sprintf("rdf-%d.png", i) }
