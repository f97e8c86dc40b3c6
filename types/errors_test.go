package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProblemDetails(t *testing.T) {
	tests := []struct {
		name      string
		body      interface{}
		wantError bool
		checkFunc func(*testing.T, *ProblemDetails)
	}{
		{
			name: "valid problem details",
			body: map[string]interface{}{
				"code":        "PROPERTY_NOT_FOUND",
				"layer":       "property-service",
				"userMessage": "property does not exist",
				"detail":      "no property with id 7",
				"traceId":     "trace-123",
				"timestamp":   "2025-01-23T10:00:00Z",
				"status":      404.0,
			},
			checkFunc: func(t *testing.T, pd *ProblemDetails) {
				assert.Equal(t, "PROPERTY_NOT_FOUND", pd.Code)
				assert.Equal(t, "property-service", pd.Layer)
				assert.Equal(t, "trace-123", pd.TraceID)
				require.NotNil(t, pd.Status)
				assert.Equal(t, 404, *pd.Status)
			},
		},
		{
			name: "defaults layer and trace id",
			body: map[string]interface{}{
				"code":        "BAD_REQUEST",
				"userMessage": "bad request",
			},
			checkFunc: func(t *testing.T, pd *ProblemDetails) {
				assert.Equal(t, LayerCollaborator, pd.Layer)
				assert.NotEmpty(t, pd.TraceID)
				assert.NotEmpty(t, pd.Timestamp)
			},
		},
		{
			name:      "missing required fields",
			body:      map[string]interface{}{"code": "X"},
			wantError: true,
		},
		{
			name:      "invalid format",
			body:      "not a map",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pd, err := ParseProblemDetails(tt.body)
			if tt.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.checkFunc(t, pd)
		})
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with detail",
			err:  &Error{Code: CodeValidation, UserMessage: "invalid input", Detail: "document hash is blank"},
			want: "[VALIDATION_ERROR] invalid input: document hash is blank",
		},
		{
			name: "without detail",
			err:  &Error{Code: CodeCancelled, UserMessage: "transaction cancelled"},
			want: "[CANCELLED] transaction cancelled",
		},
		{
			name: "with tx id",
			err:  &Error{Code: CodeTimeout, UserMessage: "pending", TxID: "TX1"},
			want: "[TIMEOUT_ERROR] pending (txId=TX1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("send: %w", ValidationError("bad address %q", "x"))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrSubmit))

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, e.Code)
	assert.NotEmpty(t, e.TraceID)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeNetwork, cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.True(t, err.Retriable)
	assert.Equal(t, "connection refused", err.Detail)
}

func TestTimeoutErrorCarriesTxID(t *testing.T) {
	err := TimeoutError("ABC", 4)

	assert.Equal(t, "ABC", err.TxID)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Contains(t, err.Error(), "4 rounds")
}

func TestProblemDetailsRoundTrip(t *testing.T) {
	status := 409
	orig := NewError(CodeAlreadyInFlight, "")
	orig.Status = &status

	back := NewErrorFromProblemDetails(orig.ToProblemDetails())

	assert.Equal(t, orig.Code, back.Code)
	assert.Equal(t, orig.TraceID, back.TraceID)
	assert.Equal(t, 409, *back.Status)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "typed config missing", err: ConfigMissingError("LEDGER_SERVER"), want: ConfigSetupMessage},
		{name: "legacy signature", err: errors.New("Attempt to get default algod configuration without specifying it"), want: ConfigSetupMessage},
		{name: "raw message", err: errors.New("boom"), want: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}
