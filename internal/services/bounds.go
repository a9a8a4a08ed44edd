package services

import (
	"context"
	"dropoff-route-service/internal/domain"
	"dropoff-route-service/internal/ports"
	"fmt"

	"github.com/sirupsen/logrus"
)

// MergeReport counts what MergeBounds did.
type MergeReport struct {
	Seen      int
	Updated   int
	Conflicts int
}

// MergeBounds folds every bound of src into dst with the usual compare rule.
// Two optimal bounds with different costs are a conflict: one of the runs
// was wrong. The better cost is kept and the conflict is logged.
func MergeBounds(ctx context.Context, dst, src ports.BoundStore, log logrus.FieldLogger) (MergeReport, error) {
	var rep MergeReport
	if log == nil {
		log = logrus.StandardLogger()
	}

	bounds, err := src.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("merge bounds: list source: %w", err)
	}

	for _, b := range bounds {
		rep.Seen++

		cur, err := dst.Get(ctx, b.Instance)
		if err != nil {
			return rep, fmt.Errorf("merge bounds: get %s: %w", b.Instance, err)
		}
		if cur != nil && cur.Optimal && b.Optimal && !domain.SameCost(cur.Cost, b.Cost) {
			rep.Conflicts++
			log.WithFields(logrus.Fields{
				"instance": b.Instance,
				"current":  cur.Cost,
				"incoming": b.Cost,
			}).Warn("merge bounds: both sides claim optimality with different costs")
		}

		updated, err := dst.Upsert(ctx, b)
		if err != nil {
			return rep, fmt.Errorf("merge bounds: upsert %s: %w", b.Instance, err)
		}
		if updated {
			rep.Updated++
		}
	}

	return rep, nil
}

// SummarizeBounds counts stored bounds and how many of them are optimal.
func SummarizeBounds(bounds []domain.Bound) (total, optimal int) {
	for _, b := range bounds {
		total++
		if b.Optimal {
			optimal++
		}
	}
	return total, optimal
}
