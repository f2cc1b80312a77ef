package project

// Project is the top-level container the solver consumes: the entity Arena plus the
// lifecycle-scoped settings for the next solve. A Project is exclusively owned by one
// solve at a time (per the concurrency model); the orchestrator is the only code that
// mutates entities, and it does so exactly once, at the end of a successful solve.
type Project struct {
	Name string

	Arena    *Arena
	Settings SolverOptions
}

// NewProject returns an empty Project with default solver settings.
func NewProject(name string) *Project {
	return &Project{Name: name, Arena: NewArena(), Settings: DefaultSolverOptions()}
}
