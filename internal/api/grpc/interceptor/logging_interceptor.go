package interceptor

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"retail-bank-core/internal/domain"
	"retail-bank-core/internal/logger"
)

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	// checked first: wraps the underlying cause
	{domain.ErrPaymentProcessing, codes.Internal},

	{domain.ErrInvalidAmount, codes.InvalidArgument},
	{domain.ErrInvalidAccountNumber, codes.InvalidArgument},
	{domain.ErrSameAccount, codes.InvalidArgument},
	{domain.ErrInvalidLoanApplication, codes.InvalidArgument},
	{domain.ErrInvalidAccountRequest, codes.InvalidArgument},

	{domain.ErrInsufficientFunds, codes.FailedPrecondition},
	{domain.ErrInvalidLoanState, codes.FailedPrecondition},
	{domain.ErrLoanNotApproved, codes.FailedPrecondition},
	{domain.ErrOverPayment, codes.FailedPrecondition},
	{domain.ErrDailyLimitExceeded, codes.FailedPrecondition},

	{domain.ErrAccountNotFound, codes.NotFound},
	{domain.ErrLoanNotFound, codes.NotFound},
	{domain.ErrMappingNotFound, codes.NotFound},

	{domain.ErrForbidden, codes.PermissionDenied},
	{domain.ErrDuplicateMapping, codes.Aborted},

	{context.DeadlineExceeded, codes.DeadlineExceeded},
	{context.Canceled, codes.Canceled},
}

// ToStatus converts a service error into a gRPC status error. Errors that already carry a
// status pass through; anything unrecognised becomes Internal without leaking its text.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return err
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			if ec.code == codes.Internal {
				return status.Error(codes.Internal, ec.err.Error())
			}
			return status.Error(ec.code, err.Error())
		}
	}
	return status.Error(codes.Internal, "internal error")
}

type LoggingInterceptor struct{}

func NewLoggingInterceptor() *LoggingInterceptor {
	return &LoggingInterceptor{}
}

// Unary returns a server interceptor that logs every call and maps domain errors to status codes
func (i *LoggingInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		duration := time.Since(start)

		if err != nil {
			mapped := ToStatus(err)
			code := status.Code(mapped)
			if code == codes.Internal || code == codes.Unknown {
				logger.ErrorContext(ctx, "gRPC call failed", "method", info.FullMethod, "code", code.String(), "duration", duration, "error", err)
			} else {
				logger.WarnContext(ctx, "gRPC call rejected", "method", info.FullMethod, "code", code.String(), "duration", duration, "error", err)
			}
			return nil, mapped
		}

		logger.InfoContext(ctx, "gRPC call", "method", info.FullMethod, "code", codes.OK.String(), "duration", duration)
		return resp, nil
	}
}
