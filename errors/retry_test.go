package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		RetryableErrors: []ErrorType{
			ErrTypeDatabase,
			ErrTypeNetwork,
		},
	}
}

func TestRetryer_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	retryer := NewRetryer(fastRetryConfig())

	err := retryer.Execute(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return NewDatabaseError(ErrCodeAuditWrite, "transient", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryer_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	retryer := NewRetryer(fastRetryConfig())

	err := retryer.Execute(context.Background(), func() error {
		attempts++
		return NewValidationError(ErrCodeInvalidInput, "bad", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryer_PlainErrorsNotRetried(t *testing.T) {
	attempts := 0
	retryer := NewRetryer(fastRetryConfig())

	err := retryer.Execute(context.Background(), func() error {
		attempts++
		return fmt.Errorf("unclassified")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryer_ExhaustsRetries(t *testing.T) {
	attempts := 0
	retryer := NewRetryer(fastRetryConfig())

	err := retryer.Execute(context.Background(), func() error {
		attempts++
		return NewDatabaseError(ErrCodeAuditWrite, "still down", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 4, attempts)

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Details, "after 3 retries")
}

func TestRetryer_ContextCancellationStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	retryer := NewRetryer(fastRetryConfig())

	attempts := 0
	err := retryer.Execute(ctx, func() error {
		attempts++
		cancel()
		return NewDatabaseError(ErrCodeAuditWrite, "down", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestExecuteWithResult(t *testing.T) {
	attempts := 0
	result, err := ExecuteWithResult(context.Background(), fastRetryConfig(), func() ([]string, error) {
		attempts++
		if attempts < 2 {
			return nil, NewNetworkError(ErrCodeNetworkConnection, "flaky", nil)
		}
		return []string{"row"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"row"}, result)
	assert.Equal(t, 2, attempts)
}
