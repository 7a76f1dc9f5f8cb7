package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlannerReusesPlans(t *testing.T) {
	p := NewPlanner()

	r1 := p.Real(64)
	r2 := p.Real(64)
	c1 := p.Complex(64)
	c2 := p.Complex(20)

	assert.Same(t, r1, r2)
	assert.Same(t, c1, p.Complex(64))
	assert.NotSame(t, c1, c2)
	assert.Equal(t, 64, r1.Len())
	assert.Equal(t, 20, c2.Len())
	assert.Equal(t, 3, p.Len())
}
