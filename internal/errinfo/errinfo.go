package errinfo

import "fmt"

// ErrorInfo is the structured error payload returned to clients.
type ErrorInfo struct {
	ErrorCode  string   `json:"error_code"`
	Phase      string   `json:"phase,omitempty"`
	Subphase   string   `json:"subphase,omitempty"`
	Retryable  bool     `json:"retryable"`
	Actions    []string `json:"actions,omitempty"`
	ProviderID string   `json:"provider_id,omitempty"`
	ModelID    string   `json:"model_id,omitempty"`
	ProjectID  string   `json:"project_id,omitempty"`
	Detail     string   `json:"detail,omitempty"`
}

func (e *ErrorInfo) Error() string {
	if e.Detail == "" {
		return e.ErrorCode
	}
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Detail)
}

const (
	CodeUnauthenticated       = "UNAUTHENTICATED"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeEmailTaken            = "EMAIL_TAKEN"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeProjectNotFound       = "PROJECT_NOT_FOUND"
	CodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	CodeProviderAuthFailed    = "PROVIDER_AUTH_FAILED"
	CodeProviderUnavailable   = "PROVIDER_UNAVAILABLE"
	CodeNetworkUnavailable    = "NETWORK_UNAVAILABLE"
	CodeEgressBlocked         = "EGRESS_BLOCKED_BY_POLICY"
	CodeToolFailed            = "TOOL_FAILED"
	CodeStorageFailed         = "STORAGE_FAILED"
	CodeAgentStepLimit        = "AGENT_STEP_LIMIT"
	CodeUserCanceled          = "USER_CANCELED"
)

const (
	ActionRetry        = "retry"
	ActionSignIn       = "sign_in"
	ActionOpenSettings = "open_settings"
)

const (
	PhaseAuth    = "auth"
	PhaseProject = "project"
	PhaseChat    = "chat"
	PhaseAnon    = "anon_work"
)

const (
	SubphaseSignIn = "sign_in"
	SubphaseSignUp = "sign_up"
	SubphaseStream = "stream"
	SubphaseTools  = "tools"
)

func Unauthenticated(phase string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeUnauthenticated,
		Phase:     phase,
		Retryable: false,
		Actions:   []string{ActionSignIn},
		Detail:    "Authentication required",
	}
}

func InvalidCredentials() *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeInvalidCredentials,
		Phase:     PhaseAuth,
		Subphase:  SubphaseSignIn,
		Retryable: false,
		Detail:    "Invalid credentials",
	}
}

func EmailTaken() *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeEmailTaken,
		Phase:     PhaseAuth,
		Subphase:  SubphaseSignUp,
		Retryable: false,
		Detail:    "Email already registered",
	}
}

func ValidationFailed(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeValidationFailed,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func ProjectNotFound(projectID string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProjectNotFound,
		Phase:     PhaseProject,
		Retryable: false,
		ProjectID: projectID,
		Detail:    "Project not found",
	}
}

func ProviderNotConfigured(phase string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderNotConfigured,
		Phase:     phase,
		Retryable: false,
		Actions:   []string{ActionOpenSettings},
	}
}

func ProviderAuthFailed(phase string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderAuthFailed,
		Phase:     phase,
		Retryable: false,
		Actions:   []string{ActionOpenSettings},
	}
}

func ProviderUnavailable(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderUnavailable,
		Phase:     phase,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func NetworkUnavailable(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeNetworkUnavailable,
		Phase:     phase,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func EgressBlocked(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeEgressBlocked,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func ToolFailed(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeToolFailed,
		Phase:     PhaseChat,
		Subphase:  SubphaseTools,
		Retryable: false,
		Detail:    detail,
	}
}

func StorageFailed(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeStorageFailed,
		Phase:     phase,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func AgentStepLimit(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeAgentStepLimit,
		Phase:     PhaseChat,
		Retryable: false,
		Detail:    detail,
	}
}

func UserCanceled(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeUserCanceled,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}
