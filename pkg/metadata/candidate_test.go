package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookerybooks/bookery/pkg/errcodes"
)

func TestNewCandidate(t *testing.T) {
	meta := &BookMetadata{Title: "The Templar Legacy"}

	tests := []struct {
		name       string
		confidence float64
		wantErr    bool
	}{
		{
			name:       "mid-range confidence",
			confidence: 0.87,
		},
		{
			name:       "lower bound",
			confidence: 0.0,
		},
		{
			name:       "upper bound",
			confidence: 1.0,
		},
		{
			name:       "negative confidence",
			confidence: -0.1,
			wantErr:    true,
		},
		{
			name:       "confidence above one",
			confidence: 1.1,
			wantErr:    true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := NewCandidate(meta, test.confidence, "openlibrary", "/works/OL123W")
			if test.wantErr {
				require.Error(t, err)
				assert.True(t, errcodes.IsKind(err, errcodes.KindValidation))
				assert.Contains(t, err.Error(), "confidence must be between 0.0 and 1.0")
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.confidence, c.Confidence)
			assert.Equal(t, "openlibrary", c.Source)
			assert.Equal(t, "/works/OL123W", c.SourceID)
			assert.Same(t, meta, c.Metadata)
		})
	}
}
