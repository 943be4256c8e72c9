package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeAndParseCode(t *testing.T) {
	code := MakeCode(21, 7, 4)
	assert.Equal(t, 2107004, code)

	service, category, sequence := ParseCode(code)
	assert.Equal(t, 21, service)
	assert.Equal(t, 7, category)
	assert.Equal(t, 4, sequence)
}

func TestCategoryClassification(t *testing.T) {
	assert.True(t, IsClientError(ErrDocNoFile.Code))
	assert.True(t, IsClientError(ErrDocNotFound.Code))
	assert.True(t, IsServerError(ErrQueryFailed.Code))
	assert.True(t, IsServerError(ErrDatabase.Code))
	assert.False(t, IsClientError(ErrQueryFailed.Code))
}

func TestWithCausePreservesIdentity(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ErrVectorStore.WithCause(cause)

	// 原始错误对象不被修改
	assert.Nil(t, ErrVectorStore.Unwrap())

	assert.Equal(t, ErrVectorStore.Code, err.Code)
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, ErrVectorStore))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithMessagef(t *testing.T) {
	err := ErrInvalidParam.WithMessagef("unknown status %q", "bogus")
	assert.Equal(t, ErrInvalidParam.Code, err.Code)
	assert.Contains(t, err.MessageEN, `"bogus"`)
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrTenantRequired.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, ErrDocNotFound.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrQueryFailed.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, ErrVectorStore.HTTPStatus())
	assert.Equal(t, http.StatusGatewayTimeout, ErrQueryTimeout.HTTPStatus())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	e := FromError(ErrDocNotFound)
	assert.Equal(t, ErrDocNotFound.Code, e.Code)

	// 非 Errno 错误包装为内部错误
	plain := fmt.Errorf("plain error")
	e = FromError(plain)
	assert.Equal(t, ErrInternal.Code, e.Code)
	assert.Equal(t, plain, e.Unwrap())
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(ErrEmptyQuestion, ErrEmptyQuestion.Code))
	assert.True(t, IsCode(ErrEmptyQuestion.WithCause(fmt.Errorf("x")), ErrEmptyQuestion.Code))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrEmptyQuestion.Code))
}

func TestMessageLanguageFallback(t *testing.T) {
	assert.Equal(t, ErrDocNotFound.MessageZH, ErrDocNotFound.Message("zh"))
	assert.Equal(t, ErrDocNotFound.MessageEN, ErrDocNotFound.Message("en"))
	assert.Equal(t, ErrDocNotFound.MessageEN, ErrDocNotFound.Message(""))
}

func TestServiceRegistered(t *testing.T) {
	name, ok := GetServiceName(ServiceDocSeek)
	require.True(t, ok)
	assert.Equal(t, "docseek", name)
}
