package recommend

import (
	"slices"

	"gonum.org/v1/gonum/floats"
)

const neighbours = 3

// knnClassifier predicts a workout type by majority vote among the nearest training rows.
type knnClassifier struct {
	scaler scaler
	rows   [][]float64
	labels []string
}

func fitKNN(rows [][]float64, labels []string) *knnClassifier {
	s := fitScaler(rows)
	scaled := make([][]float64, len(rows))
	for i, row := range rows {
		scaled[i] = s.transform(row)
	}
	return &knnClassifier{scaler: s, rows: scaled, labels: slices.Clone(labels)}
}

type neighbour struct {
	distance float64
	index    int
}

func (k *knnClassifier) predict(features []float64) string {
	query := k.scaler.transform(features)
	ns := make([]neighbour, len(k.rows))
	for i, row := range k.rows {
		ns[i] = neighbour{distance: floats.Distance(query, row, 2), index: i} //nolint:mnd // euclidean
	}
	// Ties on distance prefer the most recent workout.
	slices.SortStableFunc(ns, func(a, b neighbour) int {
		switch {
		case a.distance < b.distance:
			return -1
		case a.distance > b.distance:
			return 1
		default:
			return b.index - a.index
		}
	})
	ns = ns[:min(neighbours, len(ns))]

	votes := make(map[string]int, len(ns))
	best := ""
	for _, n := range ns {
		label := k.labels[n.index]
		votes[label]++
		if best == "" || votes[label] > votes[best] {
			best = label
		}
	}
	return best
}
