package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
)

// Split shuffles the samples with a seeded generator and holds out
// ceil(ratio*n) of them for testing, keeping at least one for training.
// The same seed and input always produce the same partition.
func (d *Dataset) Split(ratio float64, seed uint64) (train, test *Dataset, err error) {
	if ratio < 0 || ratio >= 1 || math.IsNaN(ratio) {
		return nil, nil, common.NewConfigurationError("split",
			fmt.Sprintf("test ratio must be in [0, 1), got %g", ratio), nil)
	}
	n := d.Len()
	if n == 0 {
		return nil, nil, common.NewEmptyDatasetError("split", "nothing to split", nil)
	}

	nTest := int(math.Ceil(ratio * float64(n)))
	nTest = min(max(nTest, 0), n-1)

	order := rand.New(rand.NewPCG(seed, seed)).Perm(n)

	test = &Dataset{SampleRate: d.SampleRate, Samples: make([]LabeledSample, 0, nTest)}
	train = &Dataset{SampleRate: d.SampleRate, Samples: make([]LabeledSample, 0, n-nTest)}
	for i, idx := range order {
		if i < nTest {
			test.Samples = append(test.Samples, d.Samples[idx])
		} else {
			train.Samples = append(train.Samples, d.Samples[idx])
		}
	}
	return train, test, nil
}
