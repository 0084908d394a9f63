package report

import (
	domainreport "clinstat/domain/report"
	"clinstat/domain/run"
	apperrors "clinstat/internal/errors"
)

// StageOutput is what one analyzer produced
type StageOutput struct {
	Stage   string
	Entries []domainreport.Entry
}

// Assembler merges analyzer outputs into one keyed report. It performs no computation.
type Assembler struct{}

// NewAssembler creates a report assembler
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble tags each entry with its stage and builds the report in stage order.
// A key produced twice fails with DuplicateAnalysisKey naming both stages.
func (a *Assembler) Assemble(manifest *run.Manifest, outputs ...StageOutput) (*domainreport.Report, error) {
	if manifest == nil {
		return nil, apperrors.InvalidInput("report assembly without a manifest")
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	producedBy := make(map[string]string)
	var entries []domainreport.Entry
	for _, out := range outputs {
		for _, e := range out.Entries {
			if prev, dup := producedBy[e.Key]; dup {
				return nil, apperrors.DuplicateAnalysisKey("analysis key %q produced by stage %s and stage %s",
					e.Key, prev, out.Stage)
			}
			producedBy[e.Key] = out.Stage
			e.Stage = out.Stage
			entries = append(entries, e)
		}
	}
	return domainreport.New(manifest, entries)
}
