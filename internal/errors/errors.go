package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按模块分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown      ErrorCode = 1000
	ErrInvalidParam ErrorCode = 1001
	ErrNotFound     ErrorCode = 1002
	ErrDatabase     ErrorCode = 1003
	ErrConfigLoad   ErrorCode = 1004

	// 授权错误 (2000-2999)
	ErrNotAdmin           ErrorCode = 2000
	ErrGameNotWhitelisted ErrorCode = 2001
	ErrUnauthorized       ErrorCode = 2002
	ErrInvalidIntent      ErrorCode = 2003
	ErrTokenInvalid       ErrorCode = 2004
	ErrTokenExpired       ErrorCode = 2005
	ErrAuthentication     ErrorCode = 2006

	// 会话错误 (3000-3999)
	ErrSessionAlreadyExists ErrorCode = 3000
	ErrSessionNotFound      ErrorCode = 3001
	ErrInvalidSessionState  ErrorCode = 3002
	ErrGameExpired          ErrorCode = 3003

	// 经济状态错误 (4000-4999)
	ErrInvalidAmount             ErrorCode = 4000
	ErrInsufficientFactionPoints ErrorCode = 4001
	ErrFactionNotSelected        ErrorCode = 4002
	ErrFactionAlreadyLocked      ErrorCode = 4003
	ErrPlayerNotFound            ErrorCode = 4004

	// 算术安全错误 (5000-5999)
	ErrOverflow       ErrorCode = 5000
	ErrDivisionByZero ErrorCode = 5001

	// 奖励领取错误 (6000-6999)
	ErrEpochNotFinalized   ErrorCode = 6000
	ErrNotWinningFaction   ErrorCode = 6001
	ErrNoRewardsAvailable  ErrorCode = 6002
	ErrRewardAlreadyClaimed ErrorCode = 6003

	// 系统错误 (7000-7999)
	ErrSystemPaused  ErrorCode = 7000
	ErrEpochNotFound ErrorCode = 7001
)

// 错误码消息映射
var errorMessages = map[ErrorCode]string{
	// 通用错误
	ErrUnknown:      "未知错误",
	ErrInvalidParam: "无效的参数",
	ErrNotFound:     "资源未找到",
	ErrDatabase:     "数据库操作失败",
	ErrConfigLoad:   "配置加载失败",

	// 授权错误
	ErrNotAdmin:           "需要管理员权限",
	ErrGameNotWhitelisted: "游戏未在白名单中",
	ErrUnauthorized:       "调用方未授权",
	ErrInvalidIntent:      "意图签名无效或与参数不匹配",
	ErrTokenInvalid:       "无效的令牌",
	ErrTokenExpired:       "令牌已过期",
	ErrAuthentication:     "认证失败",

	// 会话错误
	ErrSessionAlreadyExists: "会话已存在",
	ErrSessionNotFound:      "会话不存在",
	ErrInvalidSessionState:  "会话状态不允许该操作",
	ErrGameExpired:          "对局已跨周期过期",

	// 经济状态错误
	ErrInvalidAmount:             "无效的注金金额",
	ErrInsufficientFactionPoints: "阵营点不足",
	ErrFactionNotSelected:        "玩家未选择阵营",
	ErrFactionAlreadyLocked:      "阵营已锁定，不可变更",
	ErrPlayerNotFound:            "玩家不存在",

	// 算术安全错误
	ErrOverflow:       "数值溢出",
	ErrDivisionByZero: "除数为零",

	// 奖励领取错误
	ErrEpochNotFinalized:    "周期不存在或未结算",
	ErrNotWinningFaction:    "用户不属于获胜阵营",
	ErrNoRewardsAvailable:   "没有可领取的奖励",
	ErrRewardAlreadyClaimed: "奖励已领取",

	// 系统错误
	ErrSystemPaused:  "系统已暂停",
	ErrEpochNotFound: "周期不存在",
}

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode    `json:"code"`              // 错误码
	Message string       `json:"message"`           // 错误消息
	Details string       `json:"details"`           // 详细信息
	Cause   error        `json:"-"`                 // 原始错误
	Stack   []StackFrame `json:"stack,omitempty"`   // 调用栈
}

// StackFrame 调用栈帧
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	// 捕获调用栈
	err.captureStack(2)

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return New(code, details)
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是AppError，保留原始错误码
	if appErr, ok := err.(*AppError); ok {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	appErr := New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Wrapf 包装格式化错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return Wrap(err, code, details)
}

// Is 判断错误是否为指定错误码
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}

	return ErrUnknown
}

// captureStack 捕获调用栈
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)

	if n > 0 {
		frames := runtime.CallersFrames(pcs[:n])
		for {
			frame, more := frames.Next()

			// 跳过runtime和本包的调用
			if strings.Contains(frame.Function, "runtime.") ||
				strings.Contains(frame.Function, "github.com/kalepail/blendizzard/internal/errors") {
				if !more {
					break
				}
				continue
			}

			e.Stack = append(e.Stack, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})

			if !more {
				break
			}

			// 只保留前10个栈帧
			if len(e.Stack) >= 10 {
				break
			}
		}
	}
}

// GetStack 获取格式化的调用栈
func (e *AppError) GetStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, frame := range e.Stack {
		builder.WriteString(fmt.Sprintf("%d. %s\n   %s:%d\n",
			i+1, frame.Function, frame.File, frame.Line))
	}

	return builder.String()
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Code == ErrInvalidParam || e.Code == ErrInvalidAmount:
		return 400 // Bad Request
	case e.Code == ErrNotFound || e.Code == ErrSessionNotFound ||
		e.Code == ErrPlayerNotFound || e.Code == ErrEpochNotFound:
		return 404 // Not Found
	case e.Code >= 2000 && e.Code <= 2999:
		return 401 // Unauthorized
	case e.Code == ErrNotAdmin:
		return 403 // Forbidden
	case e.Code == ErrSessionAlreadyExists || e.Code == ErrRewardAlreadyClaimed:
		return 409 // Conflict
	case e.Code == ErrDatabase:
		return 503 // Service Unavailable
	case e.Code >= 3000 && e.Code <= 6999:
		return 422 // Unprocessable Entity
	default:
		return 500 // Internal Server Error
	}
}

// ErrorResponse API错误响应结构
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     *AppError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(err *AppError, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     err,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}
