package store

import (
	"math"

	"github.com/imskit/imstore/param"
)

// frameCalibration is a derived view over a frame's parameter entries: the
// TOF calibration slope/intercept plus the residual mass-calibration
// polynomial coefficients. It is cached per frame and recomputed when any of
// the underlying keys changes.
type frameCalibration struct {
	slope     float64
	intercept float64
	coeffs    [6]float64 // a2, b2, c2, d2, e2, f2

	tofCorrectionTime float64
}

var calibrationKeys = map[param.FrameKey]struct{}{
	param.FrameCalibrationSlope:             {},
	param.FrameCalibrationIntercept:         {},
	param.FrameMassCalibrationCoefficientA:  {},
	param.FrameMassCalibrationCoefficientB:  {},
	param.FrameMassCalibrationCoefficientC:  {},
	param.FrameMassCalibrationCoefficientD:  {},
	param.FrameMassCalibrationCoefficientE:  {},
	param.FrameMassCalibrationCoefficientF:  {},
}

func isCalibrationKey(key param.FrameKey) bool {
	_, ok := calibrationKeys[key]
	return ok
}

// frameCal returns the frame's calibration view, computing and caching it
// from the frame's parameter entries on first use.
func (w *Writer) frameCal(frameNum int) (*frameCalibration, error) {
	if cal, ok := w.calCache[frameNum]; ok {
		return cal, nil
	}

	values, err := w.reader.FrameParams(frameNum)
	if err != nil {
		return nil, err
	}

	cal := &frameCalibration{}
	readDouble := func(key param.FrameKey, dst *float64) {
		if v, ok := values[key]; ok {
			if f, err := v.AsFloat64(); err == nil {
				*dst = f
			}
		}
	}

	readDouble(param.FrameCalibrationSlope, &cal.slope)
	readDouble(param.FrameCalibrationIntercept, &cal.intercept)
	readDouble(param.FrameMassCalibrationCoefficientA, &cal.coeffs[0])
	readDouble(param.FrameMassCalibrationCoefficientB, &cal.coeffs[1])
	readDouble(param.FrameMassCalibrationCoefficientC, &cal.coeffs[2])
	readDouble(param.FrameMassCalibrationCoefficientD, &cal.coeffs[3])
	readDouble(param.FrameMassCalibrationCoefficientE, &cal.coeffs[4])
	readDouble(param.FrameMassCalibrationCoefficientF, &cal.coeffs[5])

	if v, ok := w.params.GlobalParam(param.GlobalTOFCorrectionTime); ok {
		if f, err := v.AsFloat64(); err == nil {
			cal.tofCorrectionTime = f
		}
	}

	w.calCache[frameNum] = cal

	return cal, nil
}

// binToMz converts a bin index to m/z through the frame's TOF calibration:
// the square of the slope-corrected flight time, plus the odd-power residual
// polynomial in t.
func (c *frameCalibration) binToMz(bin int, binWidth float64) float64 {
	t := float64(bin) * binWidth / 1000.0

	term := c.slope * (t - c.tofCorrectionTime/1000.0 - c.intercept)
	mz := term * term

	residual := c.coeffs[0]*t +
		c.coeffs[1]*math.Pow(t, 3) +
		c.coeffs[2]*math.Pow(t, 5) +
		c.coeffs[3]*math.Pow(t, 7) +
		c.coeffs[4]*math.Pow(t, 9) +
		c.coeffs[5]*math.Pow(t, 11)

	return mz + residual
}
