package render

// State is a step of the render pipeline.
type State string

// Pipeline states. StateCleaned is reached by every request that got as far
// as creating a workspace, whether it succeeded or not.
const (
	StateIdle              State = "idle"
	StateTemplateAssembled State = "template_assembled"
	StateCompiling         State = "compiling"
	StateCompiled          State = "compiled"
	StateCompilationFailed State = "compilation_failed"
	StateConverting        State = "converting"
	StateRendered          State = "rendered"
	StateConversionFailed  State = "conversion_failed"
	StateCleaned           State = "cleaned"
)

// Failed reports whether s is a terminal failure state.
func (s State) Failed() bool {
	return s == StateCompilationFailed || s == StateConversionFailed
}
