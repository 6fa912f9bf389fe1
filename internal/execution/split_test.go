package execution

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SplitTestSuite struct {
	suite.Suite
}

func TestSplitTestSuite(t *testing.T) {
	suite.Run(t, new(SplitTestSuite))
}

func (suite *SplitTestSuite) TestSplitSize() {
	tests := []struct {
		name     string
		total    float64
		max      float64
		expected []float64
	}{
		{"below max", 50, 100, []float64{50}},
		{"equal to max", 100, 100, []float64{100}},
		{"with remainder", 250, 100, []float64{100, 100, 50}},
		{"exact multiple omits zero remainder", 300, 100, []float64{100, 100, 100}},
		{"fractional remainder", 0.7, 0.3, []float64{0.3, 0.3, 0.1}},
		{"no max", 250, 0, []float64{250}},
		{"zero total", 0, 100, nil},
		{"one past child limit", MaxChildOrders*2 + 1, 2, nil},
		{"beyond child limit", 1e18, 1, nil},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, SplitSize(tc.total, tc.max))
		})
	}
}

func (suite *SplitTestSuite) TestChildrenRespectMax() {
	for _, total := range []float64{1, 99.99, 100.01, 1234.5678, 10000} {
		sizes := SplitSize(total, 100)

		var sum float64
		for _, size := range sizes {
			suite.LessOrEqual(size, 100.0)
			suite.Greater(size, 0.0)
			sum += size
		}

		suite.InDelta(total, sum, 1e-9)
	}
}

func (suite *SplitTestSuite) TestSplitAtChildLimit() {
	sizes := SplitSize(MaxChildOrders*2, 2)
	suite.Len(sizes, MaxChildOrders)
}
