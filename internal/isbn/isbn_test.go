package isbn

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		standard Standard
		reason   Reason
	}{
		{name: "isbn-10 with hyphens", raw: "0-316-42372-6", standard: ISBN10},
		{name: "isbn-10 plain", raw: "0316423726", standard: ISBN10},
		{name: "isbn-10 with X check", raw: "837576325X", standard: ISBN10},
		{name: "isbn-13 plain", raw: "9780316423724", standard: ISBN13},
		{name: "isbn-13 with hyphens", raw: "978-83-7576-325-6", standard: ISBN13},
		{name: "isbn-13 zero control", raw: "9781784968168", standard: ISBN13},
		{name: "empty", raw: "", reason: InvalidLength},
		{name: "only hyphens", raw: "---", reason: InvalidLength},
		{name: "too short", raw: "123", reason: InvalidLength},
		{name: "twelve digits", raw: "978031642372", reason: InvalidLength},
		{name: "short with X", raw: "12X", reason: InvalidLength},
		{name: "letter inside body", raw: "12345678A9", reason: NonNumericBody},
		{name: "X inside body", raw: "X316423726", reason: NonNumericBody},
		{name: "space inside body", raw: " 0316423726", reason: NonNumericBody},
		{name: "letter as check character", raw: "123456789A", reason: NonNumericCheckCharacter},
		{name: "lowercase x check", raw: "837576325x", reason: NonNumericCheckCharacter},
		{name: "X check on isbn-13", raw: "978031642372X", reason: NonNumericCheckCharacter},
		{name: "isbn-10 wrong check", raw: "0316423727", reason: ChecksumMismatch},
		{name: "isbn-13 wrong check", raw: "9780316423725", reason: ChecksumMismatch},
		{name: "isbn-10 X where digit expected", raw: "031642372X", reason: ChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.raw)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.standard, got.Standard)
			assert.Equal(t, tt.reason == "", got.Valid())
			assert.Equal(t, strings.ReplaceAll(tt.raw, "-", ""), got.Normalized)
		})
	}
}

func TestValidate_Deterministic(t *testing.T) {
	for _, raw := range []string{"0-316-42372-6", "9780316423725", "abc", ""} {
		assert.Equal(t, Validate(raw), Validate(raw), raw)
	}
}

func TestValidate_HyphenInvariance(t *testing.T) {
	inputs := []string{
		"0-316-42372-6",
		"978-0-316-42372-4",
		"83-7576-325-X",
		"83-7576-325-x",
		"1-2-3",
		"978-031642372-X",
		"12-345678A9",
		"-",
	}
	for _, raw := range inputs {
		want := Validate(strings.ReplaceAll(raw, "-", ""))
		assert.Equal(t, want, Validate(raw), raw)
	}
}

func TestValidate_SingleDigitMutation(t *testing.T) {
	for _, valid := range []string{"0316423726", "837576325X", "9780316423724", "9788375763256"} {
		require.True(t, Validate(valid).Valid(), valid)

		for pos := 0; pos < len(valid); pos++ {
			for d := byte('0'); d <= '9'; d++ {
				if valid[pos] == d {
					continue
				}
				mutated := valid[:pos] + string(d) + valid[pos+1:]
				assert.Equal(t, ChecksumMismatch, Validate(mutated).Reason, mutated)
			}
		}
	}
}

func TestValidate_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.True(t, Validate("978-0-316-42372-4").Valid())
				assert.Equal(t, InvalidLength, Validate("123").Reason)
			}
		}()
	}
	wg.Wait()
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ISBN10, Classify("0316423726"))
	assert.Equal(t, ISBN13, Classify("9780316423724"))
	assert.Equal(t, Unknown, Classify(""))
	assert.Equal(t, Unknown, Classify("123"))
	// Classification looks at length only.
	assert.Equal(t, ISBN10, Classify("abcdefghij"))
}

func TestOutcome_Err(t *testing.T) {
	assert.NoError(t, Validate("0316423726").Err())

	err := Validate("123").Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLength))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "123", verr.Identifier)
	assert.Equal(t, InvalidLength, verr.Reason)
	assert.Contains(t, err.Error(), `"123" is not a valid isbn`)

	assert.ErrorIs(t, Validate("9780316423725").Err(), ErrChecksumMismatch)
	assert.ErrorIs(t, Validate("978031642372X").Err(), ErrNonNumericCheckCharacter)
	assert.ErrorIs(t, Validate("12345678A9").Err(), ErrNonNumericBody)
}

func TestReason_Message(t *testing.T) {
	assert.Equal(t, ErrChecksumMismatch.Error(), ChecksumMismatch.Message())
	assert.Empty(t, Reason("").Message())
}
