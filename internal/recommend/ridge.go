package recommend

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const ridgeLambda = 1.0

// ridgeRegressor is a penalised least squares fit on standardized features with an unpenalised intercept.
type ridgeRegressor struct {
	scaler scaler
	coef   []float64
}

func fitRidge(rows [][]float64, targets []float64) (*ridgeRegressor, error) {
	s := fitScaler(rows)
	n, p := len(rows), len(rows[0])+1

	x := mat.NewDense(n, p, nil)
	for r, row := range rows {
		x.Set(r, 0, 1)
		for c, v := range s.transform(row) {
			x.Set(r, c+1, v)
		}
	}
	y := mat.NewVecDense(n, targets)

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for i := 1; i < p; i++ {
		xtx.Set(i, i, xtx.At(i, i)+ridgeLambda)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return nil, fmt.Errorf("solve normal equations: %w", err)
	}
	coef := make([]float64, p)
	for i := range p {
		coef[i] = beta.AtVec(i)
	}
	return &ridgeRegressor{scaler: s, coef: coef}, nil
}

func (r *ridgeRegressor) predict(features []float64) float64 {
	result := r.coef[0]
	for i, v := range r.scaler.transform(features) {
		result += r.coef[i+1] * v
	}
	return result
}
