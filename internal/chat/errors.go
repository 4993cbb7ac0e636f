package chat

import (
	"context"
	"errors"
	"net"

	"github.com/jivzik/uigen/internal/errinfo"
	"github.com/jivzik/uigen/internal/llm"
)

func mapLLMError(providerID, modelID string, err error) *errinfo.ErrorInfo {
	var info *errinfo.ErrorInfo
	var netErr net.Error
	switch {
	case errors.Is(err, llm.ErrUnauthorized):
		info = errinfo.ProviderAuthFailed(errinfo.PhaseChat)
	case errors.Is(err, llm.ErrEgressBlocked):
		info = errinfo.EgressBlocked(errinfo.PhaseChat, "provider endpoint not allowed")
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrRateLimited):
		info = errinfo.ProviderUnavailable(errinfo.PhaseChat, err.Error())
	case errors.Is(err, context.Canceled):
		info = errinfo.UserCanceled(errinfo.PhaseChat, "generation canceled")
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		info = errinfo.NetworkUnavailable(errinfo.PhaseChat, err.Error())
	default:
		info = errinfo.ProviderUnavailable(errinfo.PhaseChat, err.Error())
	}
	info.Subphase = errinfo.SubphaseStream
	info.ProviderID = providerID
	info.ModelID = modelID
	return info
}
