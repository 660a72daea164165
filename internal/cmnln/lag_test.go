package cmnln

import (
	"testing"
	"time"

	"github.com/shugein/ceg/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyLag_Boundaries(t *testing.T) {
	assert.Equal(t, models.LagClass0To1h, ClassifyLag(30*time.Minute))
	assert.Equal(t, models.LagClass1hTo1d, ClassifyLag(12*time.Hour))
	assert.Equal(t, models.LagClass0To3d, ClassifyLag(2*24*time.Hour))
	assert.Equal(t, models.LagClass1To7d, ClassifyLag(5*24*time.Hour))
	assert.Equal(t, models.LagClass1To4w, ClassifyLag(20*24*time.Hour))
}

func TestWithinExpectedLag(t *testing.T) {
	assert.True(t, WithinExpectedLag(30*time.Minute, models.LagClass0To1d))
	assert.False(t, WithinExpectedLag(10*24*time.Hour, models.LagClass0To1d))
}
