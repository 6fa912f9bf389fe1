package utils

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsTestSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestRoundToDecimalPrecision() {
	tests := []struct {
		name      string
		quantity  float64
		precision int
		expected  float64
	}{
		{"already exact", 1.5, 2, 1.5},
		{"truncates not rounds", 1.239, 2, 1.23},
		{"eight decimals", 0.123456789, 8, 0.12345678},
		{"zero precision", 12.99, 0, 12},
		{"float artefact", 0.3, 1, 0.3},
		{"too small", 0.000000001, 8, 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, RoundToDecimalPrecision(tc.quantity, tc.precision))
		})
	}
}

func (suite *UtilsTestSuite) TestFormat() {
	suite.Equal("0.50000000", FormatQuantity(0.5, 8))
	suite.Equal("1.25", FormatQuantity(1.25, 2))
	suite.Equal("42000.5", FormatPrice(42000.5))
}
