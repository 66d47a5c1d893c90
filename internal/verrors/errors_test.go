package verrors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildAutoDetectsComponentAndCategory(t *testing.T) {
	ee := New(fmt.Errorf("pool exhausted")).Build()
	require.Equal(t, "verrors", ee.GetComponent())
	require.NotEmpty(t, ee.GetCategory())
}

func TestBuildHonorsExplicitComponentAndCategory(t *testing.T) {
	ee := Newf("shot %d: %s", 3, "deadline exceeded").
		Component("scheduler").
		Category(CategoryTimeout).
		Context("shot_index", 3).
		Build()

	require.Equal(t, "scheduler", ee.GetComponent())
	require.Equal(t, CategoryTimeout, ee.Category)
	require.Equal(t, 3, ee.GetContext()["shot_index"])
	require.Equal(t, "shot 3: deadline exceeded", ee.Error())
}

func TestPriorityFallsBackToMediumOnInvalidValue(t *testing.T) {
	ee := New(fmt.Errorf("boom")).Priority("urgent").Build()
	require.Equal(t, PriorityMedium, ee.GetPriority())
}

func TestTimingContext(t *testing.T) {
	ee := New(fmt.Errorf("exceeded deadline")).
		Component("scheduler").
		Timing("detect_objects_fine", 2500*time.Millisecond).
		Build()

	require.Equal(t, int64(2500), ee.GetContext()["duration_ms"])
}

func TestIsCategoryAndIsNotFound(t *testing.T) {
	ee := New(fmt.Errorf("job missing")).Category(CategoryNotFound).Build()
	require.True(t, IsCategory(ee, CategoryNotFound))
	require.True(t, IsNotFound(ee))
}

func TestDetectCategoryFromMessageHeuristics(t *testing.T) {
	ee := New(fmt.Errorf("context deadline exceeded")).Component("scheduler").Build()
	require.Equal(t, CategoryTimeout, ee.Category)
}
