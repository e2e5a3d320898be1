package api

import (
	"context"
	"errors"

	"github.com/matheus3301/vitalchat/internal/auth"
	"github.com/matheus3301/vitalchat/internal/chat"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps domain errors onto gRPC status codes.
func toStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		verr *chat.ValidationError
		terr *chat.TransportError
	)
	code := codes.Internal
	switch {
	case errors.As(err, &verr):
		code = codes.InvalidArgument
	case errors.Is(err, chat.ErrSendInFlight), errors.Is(err, chat.ErrNotReady), errors.Is(err, chat.ErrViewClosed):
		code = codes.FailedPrecondition
	case errors.Is(err, chat.ErrUnauthorized), errors.Is(err, auth.ErrNoCredentials):
		code = codes.Unauthenticated
	case errors.As(err, &terr):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return grpcstatus.Errorf(code, "%s: %v", op, err)
}
