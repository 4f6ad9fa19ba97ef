package param

type (
	// GlobalKey identifies a container-scoped parameter. The key space is
	// closed: new keys require a catalog entry, never ad hoc strings.
	GlobalKey int

	// FrameKey identifies a per-frame parameter. Frame keys are persisted in
	// the FrameParamKeys catalog table so that keys introduced by newer code
	// are back-registered into older containers.
	FrameKey int
)

// Global parameter keys. The numeric values are part of the persisted format
// and must never be renumbered.
const (
	GlobalInstrumentName   GlobalKey = 1  // Instrument that produced the acquisition.
	GlobalDateStarted      GlobalKey = 2  // Acquisition start time.
	GlobalNumFrames        GlobalKey = 3  // Lower bound on the distinct frame count.
	GlobalTimeOffset       GlobalKey = 4  // TOF time offset in nanoseconds.
	GlobalBinWidth         GlobalKey = 5  // TOF bin width in nanoseconds.
	GlobalBins             GlobalKey = 6  // Number of TOF bins per scan.
	GlobalTOFCorrectionTime GlobalKey = 7 // TOF correction time in microseconds.
	GlobalTOFIntensityType GlobalKey = 8  // Numeric type of raw intensity samples.
	GlobalDatasetType      GlobalKey = 9  // Dataset acquisition mode.
	GlobalPrescanTOFPulses GlobalKey = 10 // Prescan TOF pulse count.
	GlobalPrescanAccumulations GlobalKey = 11
	GlobalPrescanTICThreshold  GlobalKey = 12
	GlobalPrescanContinuous    GlobalKey = 13
	GlobalPrescanProfile       GlobalKey = 14
	GlobalInstrumentClass      GlobalKey = 15 // 0 = TOF-binned, 1 = ppm-bin-based.
	GlobalPpmBinBasedStartMz   GlobalKey = 16
	GlobalPpmBinBasedEndMz     GlobalKey = 17
)

// Frame parameter keys. As with global keys, the numeric values are persisted
// and frozen.
const (
	FrameStartTime            FrameKey = 1 // Start time of the frame, in minutes from acquisition start.
	FrameDuration             FrameKey = 2 // Duration of the frame, in seconds.
	FrameAccumulations        FrameKey = 3 // Accumulation count per TOF pulse.
	FrameType                 FrameKey = 4 // MS1, MS2, calibration, or prescan.
	FrameDecoded              FrameKey = 5 // Whether multiplexed data has been decoded.
	FrameCalibrationDone      FrameKey = 6 // Whether calibration has been applied.
	FrameScans                FrameKey = 7 // Number of scans in the frame.
	FrameCalibrationSlope     FrameKey = 8
	FrameCalibrationIntercept FrameKey = 9
	FrameAverageTOFLength     FrameKey = 10 // Average TOF length in nanoseconds.

	FrameMassCalibrationCoefficientA FrameKey = 11
	FrameMassCalibrationCoefficientB FrameKey = 12
	FrameMassCalibrationCoefficientC FrameKey = 13
	FrameMassCalibrationCoefficientD FrameKey = 14
	FrameMassCalibrationCoefficientE FrameKey = 15
	FrameMassCalibrationCoefficientF FrameKey = 16

	FrameAmbientTemperature         FrameKey = 17
	FramePressureBack               FrameKey = 18
	FramePressureFront              FrameKey = 19
	FrameHighPressureFunnelPressure FrameKey = 20
	FrameIonFunnelTrapPressure      FrameKey = 21
	FrameRearIonFunnelPressure      FrameKey = 22
	FrameQuadrupolePressure         FrameKey = 23
	FrameESIVoltage                 FrameKey = 24
	FrameFloatVoltage               FrameKey = 25
	FrameFragmentationProfile       FrameKey = 26
)

func (k GlobalKey) String() string {
	if def, ok := builtinGlobalDefs[k]; ok {
		return def.Name
	}

	return "Unknown"
}

func (k FrameKey) String() string {
	if def, ok := builtinFrameDefs[k]; ok {
		return def.Name
	}

	return "Unknown"
}
