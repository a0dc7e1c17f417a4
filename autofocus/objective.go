package autofocus

// Objective names a microscope objective lens and its default sweep
// and fine-tune step sizes, in stage steps.
type Objective struct {
	Name        string
	InitialStep int
	MinStep     int
}

// Objectives holds the default step sizes per spec.md §4.9.
var Objectives = map[string]Objective{
	"4x":   {Name: "4x", InitialStep: 560, MinStep: 5},
	"10x":  {Name: "10x", InitialStep: 100, MinStep: 2},
	"40x":  {Name: "40x", InitialStep: 20, MinStep: 1},
	"100x": {Name: "100x", InitialStep: 5, MinStep: 1},
}

// Defaults for fine-tune's convergence behavior and focus-hold's
// cadence, per spec.md §4.9 and the open question in §9 resolved by
// naming the threshold a single ImprovementRatio parameter rather than
// two inconsistently-named variables.
const (
	DefaultImprovementRatio = 0.99
	DefaultMaxConfirmations = 2
	DefaultSweepSamples     = 10
	FocusHoldStep           = 40
)
