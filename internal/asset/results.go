package asset

// StepType identifies which sub-task produced a processing result.
type StepType string

const (
	StepImage    StepType = "Image"
	StepMetadata StepType = "Metadata"
	StepVideo    StepType = "Video"
)

// ProcessingStepResult is the normalized output reference for one completed
// sub-task. Produced exactly once per sub-task, consumed exactly once by the
// branch's postprocessing step.
type ProcessingStepResult struct {
	AssetID string   `json:"AssetId"`
	Bucket  string   `json:"Bucket"`
	Key     string   `json:"Key"`
	Type    StepType `json:"Type"`
}

// PartnerStatus is the terminal status of one partner branch.
type PartnerStatus string

const (
	StatusProcessOK PartnerStatus = "PROCESS_OK"
	StatusIgnored   PartnerStatus = "IGNORED"
	StatusError     PartnerStatus = "ERROR"
)

// PartnerOutput is the delivery summary the default postprocessor produces:
// the output bucket plus matched file and checksum lists.
type PartnerOutput struct {
	Bucket    string   `json:"Bucket"`
	Files     []string `json:"Files"`
	Checksums []string `json:"Checksums"`
}

// PartnerResult is a branch's terminal value.
type PartnerResult struct {
	Provider string         `json:"Provider"`
	Status   PartnerStatus  `json:"Status"`
	Output   *PartnerOutput `json:"Output,omitempty"`
	Error    string         `json:"Error,omitempty"`
}
