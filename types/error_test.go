package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrGeneration, "backend rejected prompt")
	assert.Equal(t, "[GENERATION_ERROR] backend rejected prompt", err.Error())

	cause := errors.New("connection reset")
	wrapped := NewError(ErrTransientIO, "literature search failed").WithCause(cause)
	assert.Contains(t, wrapped.Error(), "connection reset")
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestDefaultRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(ErrTransientIO, "timeout")))
	assert.True(t, IsRetryable(NewError(ErrRateLimited, "429")))
	assert.False(t, IsRetryable(NewError(ErrInvalidInput, "empty gene")))
	assert.False(t, IsRetryable(NewError(ErrCapabilityUnavailable, "down")))
	assert.False(t, IsRetryable(errors.New("plain error")))

	// Explicit override wins over the code default.
	err := NewError(ErrInternal, "flaky").WithRetryable(true)
	assert.True(t, IsRetryable(err))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrTimeout, CodeOf(NewError(ErrTimeout, "job deadline")))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestPreferencesNormalize(t *testing.T) {
	p := Preferences{}.Normalize()
	assert.Equal(t, DefaultSections, p.Sections)
	assert.Equal(t, 10, p.MaxResults)
	assert.Equal(t, "metabolic disease", p.Disease)
	assert.False(t, p.CommercialRequired)

	custom := Preferences{Sections: []string{"Overview"}, MaxResults: 3, Disease: "oncology"}.Normalize()
	assert.Equal(t, []string{"Overview"}, custom.Sections)
	assert.Equal(t, 3, custom.MaxResults)
	assert.Equal(t, "oncology", custom.Disease)
}

func TestReportSectionLookup(t *testing.T) {
	r := &Report{
		Gene: "BRCA1",
		Sections: []Section{
			{Name: "Literature Review", Body: "BRCA1 mediates DNA repair [1]."},
		},
	}
	body, ok := r.SectionBody("Literature Review")
	assert.True(t, ok)
	assert.NotEmpty(t, body)

	_, ok = r.SectionBody("Commercial Assessment")
	assert.False(t, ok)

	assert.Contains(t, r.Text(), "## Literature Review")
}
