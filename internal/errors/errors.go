package errors

import (
	"errors"
	"net/http"
)

// User-facing messages. The application is served to a Japanese-speaking audience.
const (
	MsgValidation      = "バリデーションエラー"
	MsgUnauthorized    = "認証が必要です"
	MsgForbidden       = "この操作を行う権限がありません"
	MsgNotFound        = "ページが見つかりません"
	MsgRateLimited     = "アクセス制限に達しました。しばらく待ってからやり直してください。"
	MsgInternal        = "サーバー内部エラーが発生しました"
	MsgBadCredentials  = "ユーザー名またはパスワードが正しくありません"
	MsgInvalidDate     = "日付の形式が正しくありません。YYYY-MM-DD形式を使用してください。"
	MsgInvalidRange    = "開始日は終了日以前の日付を指定してください"
	MsgInvalidCost     = "原価は0以上の数値で入力してください"
	MsgOrderNotFound   = "指定された受注が見つかりません"
	MsgUserNotFound    = "指定されたユーザーが見つかりません"
	MsgMissingUserID   = "ユーザーIDが指定されていません"
	MsgUsernameTaken   = "ユーザー名は既に存在します。"
	MsgEmailTaken      = "メールアドレスは既に存在します。"
	MsgSelfModify      = "自分自身のアカウントに対してこの操作は行えません"
	MsgInvalidRequest  = "リクエストの形式が正しくありません"
	MsgInvalidOrderID  = "受注IDが正しくありません"
	MsgRegistrationOff = "新規登録は現在受け付けていません"

	MsgFetchFailed       = "データの取得中にエラーが発生しました"
	MsgOrderCreateFailed = "受注登録中にエラーが発生しました"
	MsgOrderUpdateFailed = "受注更新中にエラーが発生しました"
	MsgOrderDeleteFailed = "受注削除中にエラーが発生しました"
	MsgProfitFailed      = "利益データの計算中にエラーが発生しました"
	MsgUserDeleteFailed  = "ユーザー削除中にエラーが発生しました"
	MsgToggleFailed      = "管理者権限のトグル中にエラーが発生しました"
	MsgRegisterFailed    = "アカウント作成中にエラーが発生しました"
	MsgUserCreateFailed  = "ユーザー作成中にエラーが発生しました"
)

var (
	// ErrOrderNotFound is returned when an order does not exist.
	ErrOrderNotFound = errors.New(MsgOrderNotFound)
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New(MsgUserNotFound)
	// ErrInvalidCredentials covers unknown user, wrong password and inactive account alike.
	ErrInvalidCredentials = errors.New(MsgBadCredentials)
	// ErrUsernameTaken is returned when the username is already in use.
	ErrUsernameTaken = errors.New(MsgUsernameTaken)
	// ErrEmailTaken is returned when the email is already in use.
	ErrEmailTaken = errors.New(MsgEmailTaken)
	// ErrSelfModification is returned when an admin targets their own account.
	ErrSelfModification = errors.New(MsgSelfModify)
	// ErrForbidden is returned when the caller lacks the privilege for an action.
	ErrForbidden = errors.New(MsgForbidden)
	// ErrUnauthorized is returned when no valid session is present.
	ErrUnauthorized = errors.New(MsgUnauthorized)
	// ErrInvalidDate is returned for malformed date parameters.
	ErrInvalidDate = errors.New(MsgInvalidDate)
	// ErrInvalidDateRange is returned when start_date is after end_date.
	ErrInvalidDateRange = errors.New(MsgInvalidRange)
	// ErrInvalidCost is returned for negative or malformed cost inputs.
	ErrInvalidCost = errors.New(MsgInvalidCost)
	// ErrMissingUserID is returned when a user id was not supplied.
	ErrMissingUserID = errors.New(MsgMissingUserID)
	// ErrRateLimited is returned when a route's request ceiling is exceeded.
	ErrRateLimited = errors.New(MsgRateLimited)
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
	Detail string              `json:"detail,omitempty"`
}

// ValidationError carries per-field messages from form validation.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return MsgValidation
}

// Add appends a message for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     map[string][]string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:  e.Message,
		Code:   e.Code,
		Errors: e.Fields,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		httpErr := NewHTTPError(http.StatusBadRequest, MsgValidation, "VALIDATION_ERROR")
		httpErr.Fields = verr.Fields
		return httpErr
	}

	switch {
	case errors.Is(err, ErrOrderNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "ORDER_NOT_FOUND")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "UNAUTHORIZED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrSelfModification):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "SELF_MODIFICATION")
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "USERNAME_TAKEN")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrInvalidDate):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_DATE")
	case errors.Is(err, ErrInvalidDateRange):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_DATE_RANGE")
	case errors.Is(err, ErrInvalidCost):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_COST")
	case errors.Is(err, ErrMissingUserID):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "MISSING_USER_ID")
	case errors.Is(err, ErrRateLimited):
		return NewHTTPError(http.StatusTooManyRequests, err.Error(), "RATE_LIMITED")
	default:
		return NewHTTPError(http.StatusInternalServerError, MsgInternal, "INTERNAL_ERROR")
	}
}
