package sizing

import (
	"testing"

	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/stretchr/testify/suite"
)

type SizerTestSuite struct {
	suite.Suite
}

func TestSizerSuite(t *testing.T) {
	suite.Run(t, new(SizerTestSuite))
}

func (suite *SizerTestSuite) TestHighVolBound() {
	raw := Raw(types.RegimeHighVol, 5, 70)
	suite.LessOrEqual(raw, 1.0*0.3*1.5*0.70)

	size := Size(types.RegimeHighVol, 5, 70)
	suite.GreaterOrEqual(size, 0.05)
	suite.LessOrEqual(size, 1.0)
}

func (suite *SizerTestSuite) TestBoundsOverGrid() {
	regimes := []types.Regime{types.RegimeTrending, types.RegimeHighVol, types.RegimeLowVol, types.RegimeNormal}

	for _, regime := range regimes {
		for vol := 0.0; vol <= 20; vol += 0.25 {
			for confidence := 0.0; confidence <= 100; confidence += 5 {
				size := Size(regime, vol, confidence)
				suite.GreaterOrEqual(size, MinSize)
				suite.LessOrEqual(size, MaxSize)
			}
		}
	}
}

func (suite *SizerTestSuite) TestDecayFactor() {
	// 1-e^(-ln2/10) is about 0.067 per bar
	suite.InDelta(0.6697, DecayFactor(10), 1e-3)
	suite.Equal(MaxDecay, DecayFactor(0))
	suite.Equal(MaxDecay, DecayFactor(1))
}

func (suite *SizerTestSuite) TestRegimeMultiplier() {
	suite.Equal(0.3, RegimeMultiplier(types.RegimeHighVol))
	suite.Equal(0.8, RegimeMultiplier(types.RegimeTrending))
	suite.Equal(1.0, RegimeMultiplier(types.RegimeLowVol))
	suite.Equal(1.0, RegimeMultiplier(types.RegimeNormal))
}

func (suite *SizerTestSuite) TestClamping() {
	suite.Equal(MinSize, Size(types.RegimeHighVol, 50, 10))
	suite.Equal(MaxSize, Size(types.RegimeNormal, 0.1, 95))
}

func (suite *SizerTestSuite) TestMonotonicInConfidence() {
	low := Size(types.RegimeNormal, 8, 40)
	high := Size(types.RegimeNormal, 8, 90)
	suite.Less(low, high)
}
