package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatter_Format(t *testing.T) {
	f := NewFormatter("en")

	assert.Equal(t, "2.0", f.Format(2, 1))
	assert.Equal(t, "50.00", f.Format(50, 2))
	assert.Equal(t, "12,345.7", f.Format(12345.67, 1))
	assert.Equal(t, "3", f.Format(2.5001, 0))
	assert.Equal(t, "-0.13", f.Format(-0.125001, 2))
}

func TestFormatter_NegativePlacesAreZero(t *testing.T) {
	assert.Equal(t, "8", NewFormatter("en").Format(7.9, -3))
}

func TestFormatter_UnknownLocaleFallsBack(t *testing.T) {
	assert.Equal(t, "1,000.0", NewFormatter("not a locale!").Format(1000, 1))
	assert.Equal(t, "1,000.0", NewFormatter("").Format(1000, 1))
}
