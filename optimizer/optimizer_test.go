package optimizer

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultJSON(t *testing.T) {
	testData := map[string]struct {
		res      Result
		expected string
	}{
		"finite": {
			res:      Result{Minimum: 1.5, Status: ProperResult, Evaluations: 12, Iterations: 2},
			expected: `{"minimum":1.5,"status":"proper_result","evaluations":12,"iterations":2}`,
		},
		"nan": {
			res:      Result{Minimum: math.NaN(), Status: InvalidFunctionValue, Evaluations: 3},
			expected: `{"minimum":"NaN","status":"invalid_function_value","evaluations":3,"iterations":0}`,
		},
		"positive infinity": {
			res:      Result{Minimum: math.Inf(1), Status: InvalidFunctionValue, Evaluations: 1},
			expected: `{"minimum":"+Inf","status":"invalid_function_value","evaluations":1,"iterations":0}`,
		},
		"negative infinity": {
			res:      Result{Minimum: math.Inf(-1), Status: InvalidFunctionValue, Evaluations: 5, Iterations: 1},
			expected: `{"minimum":"-Inf","status":"invalid_function_value","evaluations":5,"iterations":1}`,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			out, err := json.Marshal(td.res)
			require.Nil(t, err)
			assert.JSONEq(t, td.expected, string(out))

			var decoded Result
			require.Nil(t, json.Unmarshal(out, &decoded))
			assert.Equal(t, td.res.Status, decoded.Status)
			assert.Equal(t, td.res.Evaluations, decoded.Evaluations)
			assert.Equal(t, td.res.Iterations, decoded.Iterations)
			if math.IsNaN(td.res.Minimum) {
				assert.True(t, math.IsNaN(decoded.Minimum))
			} else {
				assert.Equal(t, td.res.Minimum, decoded.Minimum)
			}
		})
	}
}

func TestResultJSONErrors(t *testing.T) {
	testData := map[string]struct {
		data string
		err  error
	}{
		"finite name":  {`{"minimum":"1.5","status":"proper_result"}`, ErrInvalidMinimum},
		"unknown name": {`{"minimum":"huge","status":"proper_result"}`, ErrInvalidMinimum},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var res Result
			assert.ErrorIs(t, json.Unmarshal([]byte(td.data), &res), td.err)
		})
	}
}
