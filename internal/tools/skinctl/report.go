package skinctl

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"

	apperrors "github.com/Gathouria/Adopt-Skin/internal/platform/errors"
)

// errorReport is the JSON form of a failed command.
type errorReport struct {
	Code     string            `json:"code"`
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Domain   string            `json:"domain,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// newErrorReport describes err through its gRPC status. Errors without a
// domain code are reported as UNKNOWN.
func newErrorReport(err error) errorReport {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(apperrors.CodeUnknown, err.Error(), err)
	}
	st := status.Convert(appErr.ToGRPCStatus("en-US", err.Error()))
	report := errorReport{
		Code:    string(appErr.Code),
		Status:  st.Code().String(),
		Message: err.Error(),
	}
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			report.Code = d.GetReason()
			report.Domain = d.GetDomain()
			report.Metadata = d.GetMetadata()
		case *errdetails.LocalizedMessage:
			report.Message = d.GetMessage()
		}
	}
	return report
}
