package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusConflict, MetadataFor(CodeOutOfStock).HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeInvalidQuantity).HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeSessionFinal).HTTPStatus)
	assert.False(t, MetadataFor(CodeSessionFinal).Retryable)
	assert.True(t, MetadataFor(CodeDependency).Retryable)
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("NOPE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("boom")
	err := Wrap(CodeDependency, cause, "inventory read")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "DEPENDENCY_ERROR: inventory read", err.Error())
}

func TestAsUnwrapsNestedError(t *testing.T) {
	t.Parallel()

	inner := New(CodeOutOfStock, "no stock")
	outer := fmt.Errorf("add item: %w", inner)

	typed := As(outer)
	require.NotNil(t, typed)
	assert.Equal(t, CodeOutOfStock, typed.Code())
	assert.True(t, HasCode(outer, CodeOutOfStock))
	assert.False(t, HasCode(outer, CodeNotFound))
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, Retryable(New(CodeDependency, "down")))
	assert.False(t, Retryable(New(CodeInvalidQuantity, "too many")))
	assert.False(t, Retryable(fmt.Errorf("plain")))
}

func TestDumpCollectsChain(t *testing.T) {
	t.Parallel()

	err := Wrap(CodeInternal, fmt.Errorf("root"), "wrapped")
	dump := Dump(err)

	assert.Equal(t, CodeInternal, dump.Code)
	require.Len(t, dump.Chain, 2)
}
