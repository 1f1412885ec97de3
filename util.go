package correlation

import (
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/mat"
)

// IndentExpand repeats indent growth times
func IndentExpand(indent string, growth int) string {
	indentByte := []byte(indent)
	out := make([]byte, 0, len(indent)*growth)
	for i := 0; i < growth; i++ {
		out = append(out, indentByte...)
	}
	return string(out)
}

func matrixRows(m mat.Matrix) [][]float64 {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

// indexLabels returns the 1-based labels of the longest series
func indexLabels(y [][]float64) []string {
	n := 0
	for _, s := range y {
		n = max(n, len(s))
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	return labels
}

// LineSeries generates an echart multi-line chart of series indexed from 1. NaN values are
// left as gaps.
func LineSeries(title string, seriesName []string, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithYAxisOpts(
			opts.YAxis{
				Type: "log",
			},
		),
	)

	line = line.SetXAxis(indexLabels(y))
	for i, series := range seriesName {
		lineData := make([]opts.LineData, 0, len(y[i]))
		for _, v := range y[i] {
			if math.IsNaN(v) {
				lineData = append(lineData, opts.LineData{Value: "-"})
				continue
			}
			lineData = append(lineData, opts.LineData{Value: v})
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

// BarSeries generates an echart grouped bar chart of series indexed from 1
func BarSeries(title string, seriesName []string, y [][]float64) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	bar = bar.SetXAxis(indexLabels(y))
	for i, series := range seriesName {
		barData := make([]opts.BarData, 0, len(y[i]))
		for _, v := range y[i] {
			barData = append(barData, opts.BarData{Value: v})
		}
		bar = bar.AddSeries(series, barData)
	}
	return bar
}
