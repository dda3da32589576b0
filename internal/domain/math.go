package domain

import (
	"math"
	"strconv"
)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func itoaInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
