package training

import (
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
)

// ClassMetrics are the scores of one label
type ClassMetrics struct {
	Label     string  `json:"label" yaml:"label"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	Support   int     `json:"support" yaml:"support"`
}

// ClassificationReport summarises predictions against ground truth.
// Ratios with a zero denominator are reported as 0.
type ClassificationReport struct {
	Classes     []ClassMetrics `json:"classes" yaml:"classes"`
	Accuracy    float64        `json:"accuracy" yaml:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg" yaml:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg" yaml:"weighted_avg"`
	// Confusion[actual][predicted]
	Confusion [2][2]int `json:"confusion" yaml:"confusion"`
	Total     int       `json:"total" yaml:"total"`
}

// Evaluate builds a report from paired labels. Extra entries in the longer
// slice are ignored.
func Evaluate(actual, predicted []classifier.Label) *ClassificationReport {
	n := min(len(actual), len(predicted))
	report := &ClassificationReport{Total: n}

	correct := 0
	for i := 0; i < n; i++ {
		a, p := actual[i], predicted[i]
		if !validLabel(a) || !validLabel(p) {
			continue
		}
		report.Confusion[a][p]++
		if a == p {
			correct++
		}
	}
	report.Accuracy = ratio(correct, n)

	labels := []classifier.Label{classifier.Healthy, classifier.Fault}
	report.Classes = make([]ClassMetrics, 0, len(labels))
	for _, l := range labels {
		tp := report.Confusion[l][l]
		fp := report.Confusion[1-l][l]
		fn := report.Confusion[l][1-l]

		m := ClassMetrics{
			Label:     l.String(),
			Precision: ratio(tp, tp+fp),
			Recall:    ratio(tp, tp+fn),
			Support:   tp + fn,
		}
		m.F1 = harmonic(m.Precision, m.Recall)
		report.Classes = append(report.Classes, m)
	}

	report.MacroAvg = ClassMetrics{Label: "macro avg", Support: n}
	report.WeightedAvg = ClassMetrics{Label: "weighted avg", Support: n}
	for _, m := range report.Classes {
		report.MacroAvg.Precision += m.Precision / float64(len(report.Classes))
		report.MacroAvg.Recall += m.Recall / float64(len(report.Classes))
		report.MacroAvg.F1 += m.F1 / float64(len(report.Classes))

		if n > 0 {
			w := float64(m.Support) / float64(n)
			report.WeightedAvg.Precision += m.Precision * w
			report.WeightedAvg.Recall += m.Recall * w
			report.WeightedAvg.F1 += m.F1 * w
		}
	}

	return report
}

func validLabel(l classifier.Label) bool {
	return l == classifier.Healthy || l == classifier.Fault
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func harmonic(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
