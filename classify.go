/*
Copyright © 2022 the bufclip authors.
This file is part of bufclip.

bufclip is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

bufclip is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with bufclip.  If not, see <http://www.gnu.org/licenses/>.
*/

package bufclip

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// A Classifier splits values into at most k classes and returns the
// ascending upper bound of each class. The last bound is the largest value.
// When values has k or fewer distinct values, those values are the bounds.
type Classifier func(values []float64, k int) ([]float64, error)

// jenksSampleSize is the number of values above which JenksBreaks
// classifies an evenly spaced sample of the sorted data.
const jenksSampleSize = 3000

// ClassifierByName returns the classifier called name, which is one
// of "jenks", "equal", or "quantile".
func ClassifierByName(name string) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "jenks", "naturalbreaks":
		return JenksBreaks, nil
	case "equal", "equalinterval":
		return EqualIntervalBreaks, nil
	case "quantile":
		return QuantileBreaks, nil
	default:
		return nil, fmt.Errorf("bufclip: unknown classification method %q; "+
			"valid options are jenks, equal, and quantile", name)
	}
}

// sortedValues returns a sorted copy of the finite members of values and
// the distinct values among them.
func sortedValues(values []float64, k int) (data, distinct []float64, err error) {
	if k < 1 {
		return nil, nil, fmt.Errorf("bufclip: number of classes must be at least 1, not %d", k)
	}
	data = make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("bufclip: no values to classify")
	}
	sort.Float64s(data)
	for i, v := range data {
		if i == 0 || v != data[i-1] {
			distinct = append(distinct, v)
		}
	}
	return data, distinct, nil
}

// increasing removes bounds that are not larger than the one before.
func increasing(b []float64) []float64 {
	out := b[:0]
	for i, v := range b {
		if i == 0 || v > out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// JenksBreaks classifies values with the Jenks natural breaks method,
// which chooses bounds that minimize the variance within classes.
func JenksBreaks(values []float64, k int) ([]float64, error) {
	data, distinct, err := sortedValues(values, k)
	if err != nil {
		return nil, err
	}
	if len(distinct) <= k {
		return distinct, nil
	}
	if len(data) > jenksSampleSize {
		s := make([]float64, jenksSampleSize)
		for i := range s {
			s[i] = data[i*(len(data)-1)/(jenksSampleSize-1)]
		}
		data = s
	}
	n := len(data)

	// lower[l][j] is the 1-based index of the first value in class j of the
	// best partition of the first l values; vari[l][j] is its total
	// within-class variance.
	lower := make([][]int, n+1)
	vari := make([][]float64, n+1)
	for i := range lower {
		lower[i] = make([]int, k+1)
		vari[i] = make([]float64, k+1)
	}
	for j := 1; j <= k; j++ {
		lower[1][j] = 1
		for i := 1; i <= n; i++ {
			if i > 1 || j > 1 {
				vari[i][j] = math.Inf(1)
			}
		}
	}
	for l := 2; l <= n; l++ {
		var s1, s2, w, v float64
		for m := 1; m <= l; m++ {
			i3 := l - m + 1
			val := data[i3-1]
			s1 += val
			s2 += val * val
			w++
			v = s2 - s1*s1/w
			i4 := i3 - 1
			if i4 == 0 {
				continue
			}
			for j := 2; j <= k; j++ {
				if vari[l][j] >= v+vari[i4][j-1] {
					lower[l][j] = i3
					vari[l][j] = v + vari[i4][j-1]
				}
			}
		}
		lower[l][1] = 1
		vari[l][1] = v
	}

	breaks := make([]float64, k)
	breaks[k-1] = data[n-1]
	l := n
	for j := k; j >= 2; j-- {
		breaks[j-2] = data[lower[l][j]-2]
		l = lower[l][j] - 1
	}
	return increasing(breaks), nil
}

// EqualIntervalBreaks divides the range of values into k classes of equal
// width.
func EqualIntervalBreaks(values []float64, k int) ([]float64, error) {
	data, distinct, err := sortedValues(values, k)
	if err != nil {
		return nil, err
	}
	if len(distinct) <= k {
		return distinct, nil
	}
	lo, hi := floats.Min(data), floats.Max(data)
	breaks := make([]float64, k)
	for i := range breaks {
		breaks[i] = lo + float64(i+1)*(hi-lo)/float64(k)
	}
	breaks[k-1] = hi
	return increasing(breaks), nil
}

// QuantileBreaks puts approximately the same number of values in each class.
func QuantileBreaks(values []float64, k int) ([]float64, error) {
	data, distinct, err := sortedValues(values, k)
	if err != nil {
		return nil, err
	}
	if len(distinct) <= k {
		return distinct, nil
	}
	breaks := make([]float64, k)
	for i := range breaks {
		breaks[i] = stat.Quantile(float64(i+1)/float64(k), stat.Empirical, data, nil)
	}
	breaks[k-1] = floats.Max(data)
	return increasing(breaks), nil
}

// GoodnessOfVarianceFit returns 1 - SDCM/SDAM for the classification of
// values by breaks, where SDCM is the sum of squared deviations from the
// class means and SDAM is the sum of squared deviations from the mean of
// all values. 1 is a perfect fit.
func GoodnessOfVarianceFit(values, breaks []float64) float64 {
	if len(values) == 0 || len(breaks) == 0 {
		return math.NaN()
	}
	mean := stat.Mean(values, nil)
	var sdam float64
	for _, v := range values {
		sdam += (v - mean) * (v - mean)
	}
	if sdam == 0 {
		return 1
	}
	classes := make([][]float64, len(breaks))
	for _, v := range values {
		c := classIndex(breaks, v)
		classes[c] = append(classes[c], v)
	}
	var sdcm float64
	for _, c := range classes {
		if len(c) == 0 {
			continue
		}
		m := stat.Mean(c, nil)
		for _, v := range c {
			sdcm += (v - m) * (v - m)
		}
	}
	return 1 - sdcm/sdam
}

// classIndex returns the index of the class that v falls in. Values above
// the last bound are put in the last class.
func classIndex(breaks []float64, v float64) int {
	i := sort.SearchFloat64s(breaks, v)
	if i >= len(breaks) {
		return len(breaks) - 1
	}
	return i
}
