package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

func (suite *ErrorsTestSuite) TestNew() {
	err := New(ErrInvalidParam)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("无效的参数", err.Message)
	suite.Empty(err.Details)

	err = New(ErrNotFound, "游戏不存在")
	suite.Equal("资源未找到", err.Message)
	suite.Equal("游戏不存在", err.Details)

	err = New(ErrInvalidBet, "投注 5", "最小 10", "最大 100")
	suite.Equal("投注 5; 最小 10; 最大 100", err.Details)
}

func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrInvalidBet, "投注 %d 超出范围 [%d, %d]", 500, 10, 100)
	suite.Equal(ErrInvalidBet, err.Code)
	suite.Equal("投注 500 超出范围 [10, 100]", err.Details)
}

func (suite *ErrorsTestSuite) TestWrap() {
	originalErr := errors.New("database is locked")
	wrappedErr := Wrap(originalErr, ErrPersistence)
	suite.Equal(ErrPersistence, wrappedErr.Code)
	suite.Equal("database is locked", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)

	suite.Nil(Wrap(nil, ErrUnknown))

	// 已有AppError保留原始错误码
	appErr := New(ErrInsufficientBalance, "余额 5")
	rewrapped := Wrap(appErr, ErrPersistence, "提交旋转")
	suite.Equal(ErrInsufficientBalance, rewrapped.Code)
	suite.Contains(rewrapped.Details, "提交旋转")
}

func (suite *ErrorsTestSuite) TestWrapf() {
	originalErr := errors.New("context deadline exceeded")
	wrappedErr := Wrapf(originalErr, ErrPersistence, "会话 %s 序号 %d", "s-1", 3)
	suite.Equal("会话 s-1 序号 3", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)
}

func (suite *ErrorsTestSuite) TestIsThroughWrapping() {
	err := New(ErrIllegalTransition)
	suite.True(Is(err, ErrIllegalTransition))
	suite.False(Is(err, ErrNotFound))
	suite.False(Is(nil, ErrIllegalTransition))
	suite.False(Is(errors.New("plain"), ErrUnknown))

	wrapped := fmt.Errorf("spin: %w", New(ErrInsufficientBalance))
	suite.True(Is(wrapped, ErrInsufficientBalance))
	suite.Equal(ErrInsufficientBalance, GetCode(wrapped))
}

func (suite *ErrorsTestSuite) TestGetCode() {
	suite.Equal(ErrConfigValidate, GetCode(New(ErrConfigValidate)))
	suite.Equal(ErrUnknown, GetCode(errors.New("plain")))
	suite.Equal(ErrorCode(0), GetCode(nil))
}

func (suite *ErrorsTestSuite) TestAsAppError() {
	suite.Nil(AsAppError(nil))
	suite.Equal(ErrUnknown, AsAppError(errors.New("boom")).Code)
	suite.Equal(ErrPersistence, AsAppError(fmt.Errorf("x: %w", New(ErrPersistence))).Code)
}

func (suite *ErrorsTestSuite) TestError() {
	err := &AppError{Code: ErrNotFound, Message: "资源未找到"}
	suite.Equal("[1002] 资源未找到", err.Error())
	err.Details = "game_id: lucky"
	suite.Equal("[1002] 资源未找到: game_id: lucky", err.Error())
}

func (suite *ErrorsTestSuite) TestUnwrap() {
	originalErr := errors.New("原始错误")
	suite.Equal(originalErr, Wrap(originalErr, ErrUnknown).Unwrap())
	suite.Nil(New(ErrUnknown).Unwrap())
}

func (suite *ErrorsTestSuite) TestHTTPStatus() {
	testCases := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrInvalidParam, http.StatusBadRequest},
		{ErrInvalidBet, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{ErrSessionNotFound, http.StatusNotFound},
		{ErrInsufficientBalance, http.StatusPaymentRequired},
		{ErrIllegalTransition, http.StatusConflict},
		{ErrSpinIndexConflict, http.StatusConflict},
		{ErrTimeout, http.StatusRequestTimeout},
		{ErrTooManySessions, http.StatusTooManyRequests},
		{ErrPersistence, http.StatusServiceUnavailable},
		{ErrConfigValidate, http.StatusUnprocessableEntity},
		{ErrUnknown, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		suite.Equal(tc.expected, New(tc.code).HTTPStatus(), "错误码 %d", tc.code)
	}
}

func (suite *ErrorsTestSuite) TestIsRetryable() {
	for _, code := range []ErrorCode{ErrTimeout, ErrPersistence, ErrDatabaseConnect, ErrTransaction} {
		suite.True(IsRetryable(New(code)), "错误码 %d 应该是可重试的", code)
	}
	for _, code := range []ErrorCode{ErrInvalidBet, ErrInsufficientBalance, ErrIllegalTransition, ErrConfigValidate} {
		suite.False(IsRetryable(New(code)), "错误码 %d 不应该是可重试的", code)
	}
	suite.False(IsRetryable(nil))
}

func (suite *ErrorsTestSuite) TestIsCritical() {
	suite.True(IsCritical(New(ErrReplayMismatch)))
	suite.True(IsCritical(New(ErrDataIntegrity)))
	suite.False(IsCritical(New(ErrInvalidBet)))
	suite.False(IsCritical(nil))
}

func (suite *ErrorsTestSuite) TestStackCapture() {
	err := New(ErrUnknown)
	suite.NotEmpty(err.Stack)
	suite.NotEmpty(err.GetStack())
}

func (suite *ErrorsTestSuite) TestErrorResponse() {
	err := New(ErrPersistence, "ledger timeout")
	response := NewErrorResponse(err, "req-123")

	suite.False(response.Success)
	suite.True(response.Retryable)
	suite.Equal(err, response.Error)
	suite.Equal("req-123", response.RequestID)
	suite.Greater(response.Timestamp, int64(0))
}

func (suite *ErrorsTestSuite) TestUnknownErrorCode() {
	err := New(ErrorCode(99999))
	suite.Equal(ErrorCode(99999), err.Code)
	suite.Equal("未知错误", err.Message)
}

func (suite *ErrorsTestSuite) TestMessagesDefined() {
	for _, code := range []ErrorCode{
		ErrSessionNotFound, ErrSessionMismatch, ErrInsufficientBalance, ErrInvalidBet,
		ErrIllegalTransition, ErrSpinInProgress, ErrSpinIndexConflict, ErrReplayMismatch,
		ErrPersistence, ErrConfigValidate,
	} {
		suite.NotEqual("未知错误", New(code).Message, "错误码 %d 缺少消息", code)
	}
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
