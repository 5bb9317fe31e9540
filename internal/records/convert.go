package records

import (
	"log/slog"

	"github.com/healthfin/healthfin/internal/aggregation"
)

// FacilityRecords converts entries into aggregation input, one record per
// facility. Facility types come from facilities; entries whose form data
// cannot be normalised contribute an empty record and a warning.
func FacilityRecords(entries []FormEntry, facilities []Facility, logger *slog.Logger) []aggregation.FacilityRecord {
	if logger == nil {
		logger = slog.Default()
	}
	types := make(map[int64]string, len(facilities))
	for _, f := range facilities {
		types[f.ID] = f.FacilityType
	}
	out := make([]aggregation.FacilityRecord, 0, len(entries))
	for _, e := range entries {
		idx, err := aggregation.FormActivities(e.FormData)
		if err != nil {
			logger.Warn("unreadable form data, using empty record",
				slog.Int64("entry_id", e.ID),
				slog.Int64("facility_id", e.FacilityID),
				slog.Any("error", err))
			idx = aggregation.ActivityIndex{}
		}
		out = append(out, aggregation.FacilityRecord{
			FacilityID:   e.FacilityID,
			FacilityType: types[e.FacilityID],
			Activities:   idx,
		})
	}
	return out
}
