// Package report assembles the final delivery report for one execution. The
// report carries exactly one entry per configured partner, whether the
// partner processed, was skipped, or failed.
package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"syndicate/internal/asset"
	"syndicate/internal/logging"
	"syndicate/internal/services"
)

// FinalReport summarizes one completed execution.
type FinalReport struct {
	ExecutionID string                `json:"executionId"`
	AssetID     string                `json:"assetId"`
	GeneratedAt time.Time             `json:"generatedAt"`
	Results     []asset.PartnerResult `json:"results"`
}

// Aggregate folds the branch results into a final report. Every configured
// partner must be accounted for exactly once; anything else is a bug in the
// branch fan-out and is rejected loudly.
func Aggregate(executionID, assetID string, partners []string, results []asset.PartnerResult) (FinalReport, error) {
	seen := make(map[string]asset.PartnerResult, len(results))
	for _, result := range results {
		if _, dup := seen[result.Provider]; dup {
			return FinalReport{}, services.Wrap(services.ErrValidation, "report", "aggregate", "duplicate result for partner "+result.Provider, nil)
		}
		seen[result.Provider] = result
	}

	ordered := make([]asset.PartnerResult, 0, len(partners))
	for _, partner := range partners {
		result, ok := seen[partner]
		if !ok {
			return FinalReport{}, services.Wrap(services.ErrValidation, "report", "aggregate", "missing result for partner "+partner, nil)
		}
		ordered = append(ordered, result)
		delete(seen, partner)
	}
	for provider := range seen {
		return FinalReport{}, services.Wrap(services.ErrValidation, "report", "aggregate", "result for unconfigured partner "+provider, nil)
	}

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Provider < ordered[j].Provider })

	return FinalReport{
		ExecutionID: executionID,
		AssetID:     assetID,
		GeneratedAt: time.Now().UTC(),
		Results:     ordered,
	}, nil
}

// Encode renders the report as the JSON document persisted with the
// execution record.
func (r FinalReport) Encode() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "report", "encode", "report not serializable", err)
	}
	return string(data), nil
}

// Sink receives completed reports.
type Sink interface {
	Deliver(ctx context.Context, report FinalReport) error
}

// LogSink writes one summary line per partner result to the structured log.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logging.NewComponentLogger(logger, "report")}
}

func (s *LogSink) Deliver(_ context.Context, report FinalReport) error {
	for _, result := range report.Results {
		s.logger.Info("partner result",
			logging.String(logging.FieldEventType, "partner_result"),
			logging.String(logging.FieldExecutionID, report.ExecutionID),
			logging.String(logging.FieldAssetID, report.AssetID),
			logging.String(logging.FieldPartner, result.Provider),
			logging.String("status", string(result.Status)),
		)
	}
	return nil
}
