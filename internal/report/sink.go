package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/ppiankov/vesselcost/internal/model"
)

// ErrDelivery matches every sink failure
var ErrDelivery = errors.New("report delivery failed")

// Sink is a destination for an assembled report
type Sink interface {
	Name() string

	// Deliver writes or sends the report and returns where it went
	Deliver(ctx context.Context, rep *model.Report) (string, error)
}

// DeliveryError names the sink that failed
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrDelivery) match
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDelivery
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// BaseName is "<vessel>_Cost_Calculator_YYYYMMDD_HHMM", shared by every file sink
func BaseName(rep *model.Report) string {
	vessel := unsafeName.ReplaceAllString(rep.VesselNumber, "_")
	if vessel == "" || vessel == "_" {
		vessel = "Unknown"
	}
	return fmt.Sprintf("%s_Cost_Calculator_%s", vessel, rep.GeneratedAt.Format("20060102_1504"))
}

// FileName is the spreadsheet name for rep
func FileName(rep *model.Report) string {
	return BaseName(rep) + ".xlsx"
}
