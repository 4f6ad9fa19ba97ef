package param

import (
	"fmt"
	"math"
	"time"

	"github.com/imskit/imstore/errs"
)

// GlobalKeyDef describes one global parameter key: its persisted identity,
// declared type, and the default used when a value must be materialized
// before the instrument has reported one.
type GlobalKeyDef struct {
	Key         GlobalKey
	Name        string
	Type        DataType
	Description string
	Default     Value
}

// FrameKeyDef describes one frame parameter key.
type FrameKeyDef struct {
	Key         FrameKey
	Name        string
	Type        DataType
	Description string
	Default     Value
}

var builtinGlobalDefs = map[GlobalKey]GlobalKeyDef{
	GlobalInstrumentName:       {GlobalInstrumentName, "InstrumentName", TypeString, "Instrument that acquired the dataset", String("")},
	GlobalDateStarted:          {GlobalDateStarted, "DateStarted", TypeDateTime, "Acquisition start time", Time(time.Unix(0, 0).UTC())},
	GlobalNumFrames:            {GlobalNumFrames, "NumFrames", TypeInt, "Number of frames in the dataset", Int64(0)},
	GlobalTimeOffset:           {GlobalTimeOffset, "TimeOffset", TypeInt, "TOF time offset, in nanoseconds", Int64(0)},
	GlobalBinWidth:             {GlobalBinWidth, "BinWidth", TypeDouble, "TOF bin width, in nanoseconds", Float64(0)},
	GlobalBins:                 {GlobalBins, "Bins", TypeInt, "Number of TOF bins per scan", Int64(0)},
	GlobalTOFCorrectionTime:    {GlobalTOFCorrectionTime, "TOFCorrectionTime", TypeDouble, "TOF correction time, in microseconds", Float64(0)},
	GlobalTOFIntensityType:     {GlobalTOFIntensityType, "TOFIntensityType", TypeString, "Numeric type of the raw intensity samples", String("int32")},
	GlobalDatasetType:          {GlobalDatasetType, "DatasetType", TypeString, "Dataset acquisition mode", String("")},
	GlobalPrescanTOFPulses:     {GlobalPrescanTOFPulses, "PrescanTOFPulses", TypeInt, "Prescan TOF pulse count", Int64(0)},
	GlobalPrescanAccumulations: {GlobalPrescanAccumulations, "PrescanAccumulations", TypeInt, "Prescan accumulation count", Int64(0)},
	GlobalPrescanTICThreshold:  {GlobalPrescanTICThreshold, "PrescanTICThreshold", TypeInt, "Prescan TIC threshold", Int64(0)},
	GlobalPrescanContinuous:    {GlobalPrescanContinuous, "PrescanContinuous", TypeInt, "Whether prescan ran in continuous mode", Int64(0)},
	GlobalPrescanProfile:       {GlobalPrescanProfile, "PrescanProfile", TypeString, "Prescan profile file name", String("")},
	GlobalInstrumentClass:      {GlobalInstrumentClass, "InstrumentClass", TypeInt, "0 = TOF-binned, 1 = ppm-bin-based", Int64(0)},
	GlobalPpmBinBasedStartMz:   {GlobalPpmBinBasedStartMz, "PpmBinBasedStartMz", TypeDouble, "First m/z of a ppm-bin-based container", Float64(0)},
	GlobalPpmBinBasedEndMz:     {GlobalPpmBinBasedEndMz, "PpmBinBasedEndMz", TypeDouble, "Last m/z of a ppm-bin-based container", Float64(0)},
}

var builtinFrameDefs = map[FrameKey]FrameKeyDef{
	FrameStartTime:            {FrameStartTime, "StartTime", TypeDouble, "Start time of the frame, in minutes", Float64(0)},
	FrameDuration:             {FrameDuration, "Duration", TypeDouble, "Duration of the frame, in seconds", Float64(0)},
	FrameAccumulations:        {FrameAccumulations, "Accumulations", TypeInt, "Accumulations per TOF pulse", Int64(0)},
	FrameType:                 {FrameType, "FrameType", TypeInt, "Frame type: 1=MS1, 2=MS2, 3=calibration, 4=prescan", Int64(1)},
	FrameDecoded:              {FrameDecoded, "Decoded", TypeInt, "Whether multiplexed data has been decoded", Int64(0)},
	FrameCalibrationDone:      {FrameCalibrationDone, "CalibrationDone", TypeInt, "Whether calibration has been applied", Int64(0)},
	FrameScans:                {FrameScans, "Scans", TypeInt, "Number of scans in the frame", Int64(0)},
	FrameCalibrationSlope:     {FrameCalibrationSlope, "CalibrationSlope", TypeDouble, "TOF mass calibration slope", Float64(0)},
	FrameCalibrationIntercept: {FrameCalibrationIntercept, "CalibrationIntercept", TypeDouble, "TOF mass calibration intercept", Float64(0)},
	FrameAverageTOFLength:     {FrameAverageTOFLength, "AverageTOFLength", TypeDouble, "Average TOF length, in nanoseconds", Float64(0)},

	FrameMassCalibrationCoefficientA: {FrameMassCalibrationCoefficientA, "MassCalibrationCoefficienta2", TypeDouble, "Mass calibration residual coefficient a2", Float64(0)},
	FrameMassCalibrationCoefficientB: {FrameMassCalibrationCoefficientB, "MassCalibrationCoefficientb2", TypeDouble, "Mass calibration residual coefficient b2", Float64(0)},
	FrameMassCalibrationCoefficientC: {FrameMassCalibrationCoefficientC, "MassCalibrationCoefficientc2", TypeDouble, "Mass calibration residual coefficient c2", Float64(0)},
	FrameMassCalibrationCoefficientD: {FrameMassCalibrationCoefficientD, "MassCalibrationCoefficientd2", TypeDouble, "Mass calibration residual coefficient d2", Float64(0)},
	FrameMassCalibrationCoefficientE: {FrameMassCalibrationCoefficientE, "MassCalibrationCoefficiente2", TypeDouble, "Mass calibration residual coefficient e2", Float64(0)},
	FrameMassCalibrationCoefficientF: {FrameMassCalibrationCoefficientF, "MassCalibrationCoefficientf2", TypeDouble, "Mass calibration residual coefficient f2", Float64(0)},

	FrameAmbientTemperature:         {FrameAmbientTemperature, "AmbientTemperature", TypeDouble, "Ambient temperature, in degrees Celsius", Float64(math.NaN())},
	FramePressureBack:               {FramePressureBack, "PressureBack", TypeDouble, "Pressure at the back of the drift tube", Float64(math.NaN())},
	FramePressureFront:              {FramePressureFront, "PressureFront", TypeDouble, "Pressure at the front of the drift tube", Float64(math.NaN())},
	FrameHighPressureFunnelPressure: {FrameHighPressureFunnelPressure, "HighPressureFunnelPressure", TypeDouble, "High-pressure funnel pressure", Float64(math.NaN())},
	FrameIonFunnelTrapPressure:      {FrameIonFunnelTrapPressure, "IonFunnelTrapPressure", TypeDouble, "Ion funnel trap pressure", Float64(math.NaN())},
	FrameRearIonFunnelPressure:      {FrameRearIonFunnelPressure, "RearIonFunnelPressure", TypeDouble, "Rear ion funnel pressure", Float64(math.NaN())},
	FrameQuadrupolePressure:         {FrameQuadrupolePressure, "QuadrupolePressure", TypeDouble, "Quadrupole pressure", Float64(math.NaN())},
	FrameESIVoltage:                 {FrameESIVoltage, "ESIVoltage", TypeDouble, "Electrospray ionization voltage", Float64(math.NaN())},
	FrameFloatVoltage:               {FrameFloatVoltage, "FloatVoltage", TypeDouble, "Float voltage", Float64(math.NaN())},
	FrameFragmentationProfile:       {FrameFragmentationProfile, "FragmentationProfile", TypeString, "Voltage profile used in fragmentation", String("")},
}

// Catalog is the static registry of parameter key definitions. It is loaded
// with every shipped key at construction; Register extends it with keys read
// back from a container written by newer code.
type Catalog struct {
	global map[GlobalKey]GlobalKeyDef
	frame  map[FrameKey]FrameKeyDef
}

// NewCatalog creates a catalog preloaded with every key definition shipped in
// this version of the software.
func NewCatalog() *Catalog {
	c := &Catalog{
		global: make(map[GlobalKey]GlobalKeyDef, len(builtinGlobalDefs)),
		frame:  make(map[FrameKey]FrameKeyDef, len(builtinFrameDefs)),
	}
	for k, def := range builtinGlobalDefs {
		c.global[k] = def
	}
	for k, def := range builtinFrameDefs {
		c.frame[k] = def
	}

	return c
}

// GlobalDef returns the definition for a global key.
//
// Returns ErrUnknownKey only for keys never registered by any version of the
// software; for keys in the shipped enumeration this cannot happen.
func (c *Catalog) GlobalDef(key GlobalKey) (GlobalKeyDef, error) {
	def, ok := c.global[key]
	if !ok {
		return GlobalKeyDef{}, fmt.Errorf("%w: global key %d", errs.ErrUnknownKey, int(key))
	}

	return def, nil
}

// FrameDef returns the definition for a frame key.
func (c *Catalog) FrameDef(key FrameKey) (FrameKeyDef, error) {
	def, ok := c.frame[key]
	if !ok {
		return FrameKeyDef{}, fmt.Errorf("%w: frame key %d", errs.ErrUnknownKey, int(key))
	}

	return def, nil
}

// RegisterGlobal adds a global key definition if absent. Registration is
// idempotent; an existing definition is left untouched.
func (c *Catalog) RegisterGlobal(def GlobalKeyDef) {
	if _, ok := c.global[def.Key]; !ok {
		c.global[def.Key] = def
	}
}

// RegisterFrame adds a frame key definition if absent.
func (c *Catalog) RegisterFrame(def FrameKeyDef) {
	if _, ok := c.frame[def.Key]; !ok {
		c.frame[def.Key] = def
	}
}

// FrameKeys returns every frame key currently known to the catalog.
func (c *Catalog) FrameKeys() []FrameKey {
	keys := make([]FrameKey, 0, len(c.frame))
	for k := range c.frame {
		keys = append(keys, k)
	}

	return keys
}

// GlobalKeys returns every global key currently known to the catalog.
func (c *Catalog) GlobalKeys() []GlobalKey {
	keys := make([]GlobalKey, 0, len(c.global))
	for k := range c.global {
		keys = append(keys, k)
	}

	return keys
}
