package domain

// AnalysisFilters controls which repository artefacts are counted.
// A value is built once per collection and never mutated afterwards.
type AnalysisFilters struct {
	IncludeBranches  []string `json:"include_branches"`
	ExcludeBranches  []string `json:"exclude_branches"`
	IncludePaths     []string `json:"include_paths"`
	ExcludePaths     []string `json:"exclude_paths"`
	IncludeLanguages []string `json:"include_languages"`
	ExcludeBots      bool     `json:"exclude_bots"`
}

// IsEmpty reports whether every list filter is empty. ExcludeBots is not a list
// and does not affect the result.
func (f *AnalysisFilters) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.IncludeBranches) == 0 &&
		len(f.ExcludeBranches) == 0 &&
		len(f.IncludePaths) == 0 &&
		len(f.ExcludePaths) == 0 &&
		len(f.IncludeLanguages) == 0
}

// HasFileFilters reports whether any path or language filter is set, which is
// what decides if per-commit or per-PR file lists must be fetched.
func (f *AnalysisFilters) HasFileFilters() bool {
	if f == nil {
		return false
	}
	return len(f.IncludePaths) > 0 || len(f.ExcludePaths) > 0 || len(f.IncludeLanguages) > 0
}
