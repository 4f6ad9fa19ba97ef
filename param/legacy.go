package param

// Legacy column mappings for the first-generation fixed-column schema.
//
// The legacy tables carry one column per historically-known key. Keys
// introduced after the schema went entity-attribute-value have no legacy
// column; the mirror skips them with a warning rather than failing, since an
// old reader could never have asked for them anyway.

var legacyGlobalColumns = map[GlobalKey]string{
	GlobalInstrumentName:       "Instrument_Name",
	GlobalDateStarted:          "DateStarted",
	GlobalNumFrames:            "NumFrames",
	GlobalTimeOffset:           "TimeOffset",
	GlobalBinWidth:             "BinWidth",
	GlobalBins:                 "Bins",
	GlobalTOFCorrectionTime:    "TOFCorrectionTime",
	GlobalTOFIntensityType:     "TOFIntensityType",
	GlobalDatasetType:          "DatasetType",
	GlobalPrescanTOFPulses:     "Prescan_TOFPulses",
	GlobalPrescanAccumulations: "Prescan_Accumulations",
	GlobalPrescanTICThreshold:  "Prescan_TICThreshold",
	GlobalPrescanContinuous:    "Prescan_Continuous",
	GlobalPrescanProfile:       "Prescan_Profile",
	// InstrumentClass and the PpmBinBased keys postdate the legacy schema and
	// have no column.
}

var legacyFrameColumns = map[FrameKey]string{
	FrameStartTime:            "StartTime",
	FrameDuration:             "Duration",
	FrameAccumulations:        "Accumulations",
	FrameType:                 "FrameType",
	FrameDecoded:              "Decoded",
	FrameCalibrationDone:      "CalibrationDone",
	FrameScans:                "Scans",
	FrameCalibrationSlope:     "CalibrationSlope",
	FrameCalibrationIntercept: "CalibrationIntercept",
	FrameAverageTOFLength:     "AverageTOFLength",

	FrameMassCalibrationCoefficientA: "a2",
	FrameMassCalibrationCoefficientB: "b2",
	FrameMassCalibrationCoefficientC: "c2",
	FrameMassCalibrationCoefficientD: "d2",
	FrameMassCalibrationCoefficientE: "e2",
	FrameMassCalibrationCoefficientF: "f2",

	FrameAmbientTemperature:         "Temperature",
	FramePressureBack:               "PressureBack",
	FramePressureFront:              "PressureFront",
	FrameHighPressureFunnelPressure: "HighPressureFunnelPressure",
	FrameIonFunnelTrapPressure:      "IonFunnelTrapPressure",
	FrameRearIonFunnelPressure:      "RearIonFunnelPressure",
	FrameQuadrupolePressure:         "QuadrupolePressure",
	FrameESIVoltage:                 "ESIVoltage",
	FrameFloatVoltage:               "FloatVoltage",
	FrameFragmentationProfile:       "FragmentationProfile",
}

// LegacyGlobalColumn returns the legacy Global_Parameters column for a key.
// ok is false when the key postdates the legacy schema.
func LegacyGlobalColumn(key GlobalKey) (string, bool) {
	col, ok := legacyGlobalColumns[key]
	return col, ok
}

// LegacyFrameColumn returns the legacy Frame_Parameters column for a key.
func LegacyFrameColumn(key FrameKey) (string, bool) {
	col, ok := legacyFrameColumns[key]
	return col, ok
}

// MappedGlobalKeys returns every global key that has a legacy column, for use
// by the legacy-to-modern migration which walks the whole mapped set.
func MappedGlobalKeys() []GlobalKey {
	keys := make([]GlobalKey, 0, len(legacyGlobalColumns))
	for k := range legacyGlobalColumns {
		keys = append(keys, k)
	}

	return keys
}

// MappedFrameKeys returns every frame key that has a legacy column.
func MappedFrameKeys() []FrameKey {
	keys := make([]FrameKey, 0, len(legacyFrameColumns))
	for k := range legacyFrameColumns {
		keys = append(keys, k)
	}

	return keys
}
