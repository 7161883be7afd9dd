package quality

import "fmt"

const (
	// StartQuality is the first quality tried for lossy formats.
	StartQuality = 90
	// MinQuality is the floor; the encoding at this quality is returned when
	// no higher quality fits the size limit.
	MinQuality = 10
	// Step is how much quality drops between attempts.
	Step = 10
)

// EncodeFunc encodes the image at the given quality (1-100).
type EncodeFunc func(quality int) ([]byte, error)

// Result is the outcome of a size-constrained encode.
type Result struct {
	Data     []byte
	Quality  int
	Attempts int
	// Fits reports whether Data is within the limit. Always true when no
	// limit was set.
	Fits bool
}

// Search encodes at StartQuality and keeps lowering quality by Step until the
// output is at most maxBytes or MinQuality has been tried. A maxBytes of zero
// or less disables the limit. An unmet limit is not an error: the last
// attempt is returned with Fits set to false.
func Search(encode EncodeFunc, maxBytes int) (Result, error) {
	var res Result
	for q := StartQuality; q >= MinQuality; q -= Step {
		data, err := encode(q)
		if err != nil {
			return Result{}, fmt.Errorf("encode at quality %d: %w", q, err)
		}
		res = Result{Data: data, Quality: q, Attempts: res.Attempts + 1}

		if maxBytes <= 0 || len(data) <= maxBytes {
			res.Fits = true
			return res, nil
		}
	}
	return res, nil
}

// Once encodes a single time at StartQuality. It is used for formats without
// a quality parameter, where a size limit can only be checked, not enforced.
func Once(encode EncodeFunc, maxBytes int) (Result, error) {
	data, err := encode(StartQuality)
	if err != nil {
		return Result{}, fmt.Errorf("encode: %w", err)
	}
	return Result{
		Data:     data,
		Quality:  StartQuality,
		Attempts: 1,
		Fits:     maxBytes <= 0 || len(data) <= maxBytes,
	}, nil
}

// LimitBytes converts a limit in KB to bytes. Zero or less means unlimited.
func LimitBytes(maxKB int) int {
	if maxKB <= 0 {
		return 0
	}
	return maxKB * 1024
}
