package must

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

func Assert(cond bool, failMessage string) {
	if !cond {
		slog.Error(failMessage)
		os.Exit(1)
	}
}

func NoError(err error) {
	if err != nil {
		Assert(false, fmt.Sprintf("unexpected error: %s", err))
	}
}

func CastFloat64(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	NoError(err)
	return f
}
